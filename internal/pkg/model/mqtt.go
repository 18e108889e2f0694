package model

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gosimple/slug"
)

type RegisterDevice struct {
	Name         string   `json:"name"`
	Identifiers  []string `json:"identifiers"`
	Model        string   `json:"model"`
	Manufacturer string   `json:"manufacturer"`
}

type RegisterMessage struct {
	Tilda      string         `json:"~"`
	Name       string         `json:"name"`
	ID         string         `json:"unique_id"`
	StateTopic string         `json:"state_topic"`
	Device     RegisterDevice `json:"device"`
}

type Device struct {
	ID           string
	Model        string
	SerialNumber string
	Backend      Backend
}

// Identifier is the per-device prefix of every sensor topic.
func (d Device) Identifier() string {
	return fmt.Sprintf("%s_%s", strings.ReplaceAll(d.Model, ".", ""), d.SerialNumber)
}

type DeviceStatus struct {
	Name  string  `json:"name"`
	Slug  string  `json:"slug"`
	Value *string `json:"value"`
	Unit  string  `json:"unit"`
	Dirty bool    `json:"dirty"`
}

// Slug turns a display name into the underscore form used in topics.
func Slug(name string) string {
	return strings.ReplaceAll(slug.Make(name), "-", "_")
}

// FloatStatus builds a numeric status; ok == false publishes no value.
func FloatStatus(name string, unit NumericUnit, v float64, ok bool) DeviceStatus {
	var value *string
	if ok {
		s := strconv.FormatFloat(v, 'f', -1, 64)
		value = &s
	}
	return DeviceStatus{
		Name:  name,
		Slug:  Slug(name),
		Value: value,
		Unit:  string(unit),
		Dirty: true,
	}
}

func TextStatus(name, v string, ok bool) DeviceStatus {
	var value *string
	if ok {
		value = &v
	}
	return DeviceStatus{
		Name:  name,
		Slug:  Slug(name),
		Value: value,
		Dirty: true,
	}
}

func BoolStatus(name string, v, ok bool) DeviceStatus {
	return TextStatus(name, strconv.FormatBool(v), ok)
}
