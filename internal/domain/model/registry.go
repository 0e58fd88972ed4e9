package model

// DeviceUpdate is a partial edit of a device. Nil fields are left alone;
// a Target pointing at nil unlinks the device.
type DeviceUpdate struct {
	Name   *string
	Target **TargetRef
	Scale  **ScaleOverride
}

// Stats summarizes the registry.
type Stats struct {
	Devices int    `json:"devices"`
	Linked  int    `json:"linked"`
	Retired int    `json:"retired"`
	NextID  string `json:"next_id"`
}
