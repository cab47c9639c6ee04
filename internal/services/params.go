package services

import (
	"fmt"
	"strings"

	"dispatch/internal/domain"
	"dispatch/internal/domain/models"
	"dispatch/internal/utils"
)

// RawParams is the loosely typed parameter map of a request: ids may arrive
// as JSON numbers, text, or resource names.
type RawParams map[string]any

// NormalizedParams holds coerced ids plus any text references that still
// need a lookup (vehicle code, driver name).
type NormalizedParams struct {
	models.ActionParams
	TripRef    any
	VehicleRef string
	DriverRef  string
}

var paramAliases = map[string][]string{
	"trip_id":         {"trip_id", "tripId", "trip"},
	"vehicle_id":      {"vehicle_id", "vehicleId", "vehicle", "vehicle_code", "plate_number"},
	"driver_id":       {"driver_id", "driverId", "driver", "driver_name"},
	"cancel_bookings": {"cancel_bookings", "cancelBookings"},
}

func lookup(raw RawParams, field string) (any, bool) {
	for _, k := range paramAliases[field] {
		if v, ok := raw[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// NormalizeParams coerces every id to int64 before anything reaches the
// store. A non-numeric vehicle or driver value is kept as a reference for
// the resolver; a non-numeric trip id is kept as TripRef.
func NormalizeParams(raw RawParams) (NormalizedParams, error) {
	var out NormalizedParams

	if v, ok := lookup(raw, "trip_id"); ok {
		id, present, err := utils.ParseID(v)
		switch {
		case err != nil:
			out.TripRef = v
		case present:
			if id < 0 {
				return out, invalidParam("trip_id", v)
			}
			out.TripID = id
		}
	}

	for _, field := range []string{"vehicle_id", "driver_id"} {
		v, ok := lookup(raw, field)
		if !ok {
			continue
		}
		id, present, err := utils.ParseID(v)
		if err != nil {
			s, isText := v.(string)
			if !isText {
				return out, invalidParam(field, v)
			}
			if field == "vehicle_id" {
				out.VehicleRef = utils.NormalizeSpace(s)
			} else {
				out.DriverRef = utils.NormalizeSpace(s)
			}
			continue
		}
		if !present {
			continue
		}
		if id < 0 {
			return out, invalidParam(field, v)
		}
		if field == "vehicle_id" {
			out.VehicleID = id
		} else {
			out.DriverID = id
		}
	}

	if v, ok := lookup(raw, "cancel_bookings"); ok {
		b, ok := utils.ParseBool(v)
		if !ok {
			return out, invalidParam("cancel_bookings", v)
		}
		out.CancelBookings = b
	}
	return out, nil
}

func invalidParam(field string, v any) error {
	return domain.ValidationError{
		Field: strings.TrimSuffix(field, "_id"),
		Msg:   fmt.Sprintf("invalid value %v", v),
	}
}
