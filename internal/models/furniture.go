// internal/models/furniture.go
package models

import (
	"strings"
)

// FurnitureType 家具类型，闭合枚举
type FurnitureType string

const (
	FurnitureBed      FurnitureType = "bed"
	FurnitureKitchen  FurnitureType = "kitchen"
	FurnitureStorage  FurnitureType = "storage"
	FurnitureBathroom FurnitureType = "bathroom"
	FurnitureTable    FurnitureType = "table"
	FurnitureSeat     FurnitureType = "seat"
	FurnitureCustom   FurnitureType = "custom"
)

// AllFurnitureTypes lists the closed enumeration in catalog order.
var AllFurnitureTypes = []FurnitureType{
	FurnitureBed,
	FurnitureKitchen,
	FurnitureStorage,
	FurnitureBathroom,
	FurnitureTable,
	FurnitureSeat,
	FurnitureCustom,
}

// IsValid reports whether t is one of the known furniture types.
func (t FurnitureType) IsValid() bool {
	for _, known := range AllFurnitureTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ParseFurnitureType matches a type name case-insensitively, exact match only.
func ParseFurnitureType(s string) (FurnitureType, bool) {
	candidate := FurnitureType(strings.ToLower(strings.TrimSpace(s)))
	if candidate.IsValid() {
		return candidate, true
	}
	return "", false
}

// FurniturePreset 家具类型的默认尺寸、名称和颜色
type FurniturePreset struct {
	Type   FurnitureType `json:"type"`
	Name   string        `json:"name"`
	Width  float64       `json:"width"`
	Height float64       `json:"height"`
	Depth  float64       `json:"depth"`
	Color  string        `json:"color"`
}

var furniturePresets = map[FurnitureType]FurniturePreset{
	FurnitureBed:      {Type: FurnitureBed, Name: "Bed", Width: 1900, Height: 1400, Depth: 600, Color: "#8B5A2B"},
	FurnitureKitchen:  {Type: FurnitureKitchen, Name: "Kitchen", Width: 1200, Height: 600, Depth: 900, Color: "#4A90D9"},
	FurnitureStorage:  {Type: FurnitureStorage, Name: "Storage", Width: 800, Height: 400, Depth: 1000, Color: "#7B8D42"},
	FurnitureBathroom: {Type: FurnitureBathroom, Name: "Bathroom", Width: 800, Height: 800, Depth: 1900, Color: "#5BC0BE"},
	FurnitureTable:    {Type: FurnitureTable, Name: "Table", Width: 800, Height: 600, Depth: 720, Color: "#C08552"},
	FurnitureSeat:     {Type: FurnitureSeat, Name: "Seat", Width: 600, Height: 600, Depth: 450, Color: "#9B59B6"},
	FurnitureCustom:   {Type: FurnitureCustom, Name: "Custom", Width: 500, Height: 500, Depth: 500, Color: "gray"},
}

// PresetFor returns the preset for t, falling back to the custom preset.
func PresetFor(t FurnitureType) FurniturePreset {
	if preset, ok := furniturePresets[t]; ok {
		return preset
	}
	return furniturePresets[FurnitureCustom]
}

// Presets returns every preset in catalog order.
func Presets() []FurniturePreset {
	presets := make([]FurniturePreset, 0, len(AllFurnitureTypes))
	for _, t := range AllFurnitureTypes {
		presets = append(presets, furniturePresets[t])
	}
	return presets
}

// Rotation yaw/pitch/roll，单位为度
type Rotation struct {
	Yaw   float64 `json:"yaw"`
	Pitch float64 `json:"pitch"`
	Roll  float64 `json:"roll"`
}

// FurnitureItem 车内已放置的家具
//
// X/Y is the top-left corner in millimeters: X runs along the vehicle length
// (0 = front), Y along the width (0 = left wall). Width spans the length
// axis, Height spans the width axis.
type FurnitureItem struct {
	ID       string        `json:"id"`
	Type     FurnitureType `json:"type"`
	Name     string        `json:"name,omitempty"`
	X        float64       `json:"x"`
	Y        float64       `json:"y"`
	Z        float64       `json:"z"`
	Width    float64       `json:"width"`
	Height   float64       `json:"height"`
	Depth    *float64      `json:"depth,omitempty"`
	Rotation *Rotation     `json:"rotation,omitempty"`
	Color    string        `json:"color,omitempty"`
}

// Yaw returns the rotation about the vertical axis, 0 when unset.
func (f FurnitureItem) Yaw() float64 {
	if f.Rotation == nil {
		return 0
	}
	return f.Rotation.Yaw
}

// Clone returns a deep copy; pointer fields are not shared.
func (f FurnitureItem) Clone() FurnitureItem {
	c := f
	if f.Depth != nil {
		d := *f.Depth
		c.Depth = &d
	}
	if f.Rotation != nil {
		r := *f.Rotation
		c.Rotation = &r
	}
	return c
}

// CloneItems deep-copies a snapshot of items.
func CloneItems(items []FurnitureItem) []FurnitureItem {
	out := make([]FurnitureItem, len(items))
	for i, item := range items {
		out[i] = item.Clone()
	}
	return out
}

// Float64Ptr is a small helper for optional dimensions.
func Float64Ptr(v float64) *float64 {
	return &v
}
