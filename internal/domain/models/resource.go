package models

type ResourceKind string

const (
	ResourceVehicle ResourceKind = "vehicle"
	ResourceDriver  ResourceKind = "driver"
)

const (
	ResourceAvailable   = "available"
	ResourceDeployed    = "deployed"
	ResourceMaintenance = "maintenance"
	ResourceOffDuty     = "off_duty"
)

type Vehicle struct {
	ID          int64  `json:"id"`
	VehicleCode string `json:"vehicle_code"`
	PlateNumber string `json:"plate_number"`
	Capacity    int    `json:"capacity"`
	Status      string `json:"status"`
}

type Driver struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Phone  string `json:"phone"`
	Status string `json:"status"`
}

// OutOfService reports a status flag that rules the resource out regardless
// of its deployments.
func OutOfService(status string) bool {
	return status == ResourceMaintenance || status == ResourceOffDuty
}
