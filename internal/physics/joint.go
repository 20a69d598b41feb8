package physics

import "github.com/go-gl/mathgl/mgl64"

type JointKind uint8

const (
	ImpulseJoint JointKind = iota
	MultibodyJoint
)

func (k JointKind) String() string {
	if k == MultibodyJoint {
		return "multibody"
	}
	return "impulse"
}

// Joint links two bodies. Joints are kept for bookkeeping and island
// connectivity; they do not constrain motion.
type Joint struct {
	Kind    JointKind
	Body1   BodyHandle
	Body2   BodyHandle
	Anchor1 mgl64.Vec3
	Anchor2 mgl64.Vec3
}

// InsertJoint links two live, distinct bodies.
func (s *Store) InsertJoint(j Joint) (JointHandle, error) {
	if j.Body1 == j.Body2 {
		return 0, invalidConfig("joint links %v to itself", j.Body1)
	}
	if _, err := s.body(j.Body1); err != nil {
		return 0, err
	}
	if _, err := s.body(j.Body2); err != nil {
		return 0, err
	}
	if !finiteVec(j.Anchor1) || !finiteVec(j.Anchor2) {
		return 0, invalidConfig("non-finite joint anchor")
	}
	h := JointHandle(s.joints.insert(j))
	s.wakeBody(j.Body1)
	s.wakeBody(j.Body2)
	return h, nil
}

func (s *Store) Joint(h JointHandle) (Joint, error) {
	j, ok := s.joints.get(uint64(h))
	if !ok {
		return Joint{}, ErrInvalidHandle
	}
	return *j, nil
}

func (s *Store) RemoveJoint(h JointHandle) error {
	j, ok := s.joints.remove(uint64(h))
	if !ok {
		return ErrInvalidHandle
	}
	s.wakeBody(j.Body1)
	s.wakeBody(j.Body2)
	return nil
}

func (s *Store) NumJoints() int { return s.joints.len() }

func (s *Store) removeJointsOf(b BodyHandle) {
	var stale []JointHandle
	s.joints.each(func(h uint64, j *Joint) {
		if j.Body1 == b || j.Body2 == b {
			stale = append(stale, JointHandle(h))
		}
	})
	for _, h := range stale {
		j, _ := s.joints.remove(uint64(h))
		other := j.Body1
		if other == b {
			other = j.Body2
		}
		s.wakeBody(other)
	}
}
