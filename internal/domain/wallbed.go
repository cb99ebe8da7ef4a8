package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// CupboardCount is either a single symmetric count or an asymmetric
// {left, right} pair. The form UI sends a bare number for the symmetric
// case and an object for the asymmetric one.
type CupboardCount struct {
	// Count is set for the symmetric case; nil means Left/Right apply.
	Count *int
	Left  int
	Right int
}

// Symmetric reports whether the count applies to both sides equally.
func (c CupboardCount) Symmetric() bool {
	return c.Count != nil
}

func (c CupboardCount) MarshalJSON() ([]byte, error) {
	if c.Count != nil {
		return json.Marshal(*c.Count)
	}
	return json.Marshal(struct {
		Left  int `json:"left"`
		Right int `json:"right"`
	}{c.Left, c.Right})
}

func (c *CupboardCount) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		c.Count = &n
		c.Left, c.Right = 0, 0
		return nil
	}
	var pair struct {
		Left  int `json:"left"`
		Right int `json:"right"`
	}
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("cupboard count must be a number or {left, right}: %w", err)
	}
	c.Count = nil
	c.Left, c.Right = pair.Left, pair.Right
	return nil
}

// WallbedConfig is the flat record of selectable wall-bed attributes.
// Prompt is always derived from the other fields and never edited
// directly; ImageURL and Timestamp are filled when a generation
// completes and the config is frozen into history.
type WallbedConfig struct {
	BedSize               string        `json:"bedSize"`
	Color                 string        `json:"color"`
	Material              string        `json:"material"`
	HasCupboard           bool          `json:"hasCupboard"`
	CupboardCount         CupboardCount `json:"cupboardCount"`
	CupboardLocation      string        `json:"cupboardLocation"`
	HasCabinets           bool          `json:"hasCabinets"`
	CabinetCount          int           `json:"cabinetCount"`
	CabinetPlacement      string        `json:"cabinetPlacement"`
	HasDressingTable      bool          `json:"hasDressingTable"`
	DressingTableStyle    string        `json:"dressingTableStyle"`
	DressingTableSide     string        `json:"dressingTableSide"`
	DressingTableCabinets int           `json:"dressingTableCabinets"`
	HasSofa               bool          `json:"hasSofa"`
	SofaColor             string        `json:"sofaColor"`
	Style                 string        `json:"style"`
	Lighting              string        `json:"lighting"`
	HandleStyle           string        `json:"handleStyle"`
	Prompt                string        `json:"prompt,omitempty"`
	ImageURL              string        `json:"imageUrl,omitempty"`
	Timestamp             time.Time     `json:"timestamp,omitempty"`
}

// DefaultWallbedConfig returns the form's initial state.
func DefaultWallbedConfig() WallbedConfig {
	return WallbedConfig{
		BedSize:               "Queen",
		Color:                 "Natural Oak",
		Material:              "Wood",
		CupboardCount:         CupboardCount{Left: 1, Right: 1},
		CupboardLocation:      "both",
		CabinetCount:          2,
		CabinetPlacement:      "top",
		DressingTableStyle:    "Modern",
		DressingTableSide:     "left",
		DressingTableCabinets: 2,
		SofaColor:             "Gray",
		Style:                 "Contemporary",
		Lighting:              "None",
		HandleStyle:           "Modern Pull",
	}
}

// Design is an immutable snapshot of a configuration plus its generated
// result, as stored in design history.
type Design struct {
	ID        string        `json:"id"`
	UserID    string        `json:"user_id"`
	Config    WallbedConfig `json:"config"`
	Prompt    string        `json:"prompt"`
	ImageURL  string        `json:"image_url,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}
