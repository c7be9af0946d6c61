// internal/models/vehicle.go
package models

import (
	"sort"
)

// VehicleEnvelope 车辆内部可用空间（毫米）
type VehicleEnvelope struct {
	Type   string  `json:"type"`
	Name   string  `json:"name"`
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
}

// DefaultVehicleType is used when a plan does not name a vehicle.
const DefaultVehicleType = "vw-id-buzz"

var vehicleCatalog = map[string]VehicleEnvelope{
	"vw-id-buzz":           {Type: "vw-id-buzz", Name: "Volkswagen ID. Buzz", Length: 4712, Width: 1985},
	"vw-california":        {Type: "vw-california", Name: "Volkswagen California T6.1", Length: 2500, Width: 1580},
	"vw-crafter-l3h3":      {Type: "vw-crafter-l3h3", Name: "Volkswagen Crafter L3H3", Length: 3450, Width: 1832},
	"fiat-ducato-l2h2":     {Type: "fiat-ducato-l2h2", Name: "Fiat Ducato L2H2", Length: 3120, Width: 1870},
	"fiat-ducato-l3h2":     {Type: "fiat-ducato-l3h2", Name: "Fiat Ducato L3H2", Length: 3705, Width: 1870},
	"mercedes-sprinter-l2": {Type: "mercedes-sprinter-l2", Name: "Mercedes-Benz Sprinter L2", Length: 3265, Width: 1787},
	"ford-transit-l3h3":    {Type: "ford-transit-l3h3", Name: "Ford Transit L3H3", Length: 3494, Width: 1784},
	"renault-trafic-l2":    {Type: "renault-trafic-l2", Name: "Renault Trafic L2", Length: 2937, Width: 1662},
}

// LookupVehicle returns the envelope registered for vehicleType.
func LookupVehicle(vehicleType string) (VehicleEnvelope, bool) {
	env, ok := vehicleCatalog[vehicleType]
	return env, ok
}

// Vehicles returns the catalog sorted by type key.
func Vehicles() []VehicleEnvelope {
	list := make([]VehicleEnvelope, 0, len(vehicleCatalog))
	for _, env := range vehicleCatalog {
		list = append(list, env)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Type < list[j].Type
	})
	return list
}
