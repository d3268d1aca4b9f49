// Package pose defines the boundary to the external head-pose perception
// process. The core never sees camera frames or landmarks, only one Sample
// per processed frame.
package pose

import "time"

// Sample is one timestamped raw pose measurement.
// Angles are in degrees relative to the camera, mouth openness is a
// normalized ratio. FaceFound reports whether the perception step actually
// saw a face this frame; when false the pose fields are meaningless.
type Sample struct {
	Yaw        float64   `json:"yaw"`
	Pitch      float64   `json:"pitch"`
	Roll       float64   `json:"roll"`
	MouthOpen  float64   `json:"mouth_open"`
	BlinkLeft  bool      `json:"blink_left"`
	BlinkRight bool      `json:"blink_right"`
	FaceFound  bool      `json:"face_found"`
	T          time.Time `json:"t"`
}

// Source delivers pose samples, one per processed frame.
// Next is pull-based and must not block beyond the transport read already
// in flight: it returns false when no new frame is available.
type Source interface {
	Next() (Sample, bool)
	Close() error
}
