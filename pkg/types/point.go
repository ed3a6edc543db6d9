package types

import (
	"database/sql/driver"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Point represents a PostGIS Point expressed in geography format.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Validate checks the coordinate ranges.
func (p Point) Validate() error {
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("latitude %f out of range", p.Lat)
	}
	if p.Lng < -180 || p.Lng > 180 {
		return fmt.Errorf("longitude %f out of range", p.Lng)
	}
	return nil
}

// Value produces an EWKT literal so Postgres can cast the geography.
func (p Point) Value() (driver.Value, error) {
	return fmt.Sprintf("SRID=4326;POINT(%f %f)", p.Lng, p.Lat), nil
}

// Scan accepts WKT/EWKT or WKB bytes returned by Postgres.
func (p *Point) Scan(value interface{}) error {
	if value == nil {
		*p = Point{}
		return nil
	}

	switch v := value.(type) {
	case string:
		return p.fromText(v)
	case []byte:
		text := strings.TrimSpace(string(v))
		upper := strings.ToUpper(text)
		if strings.HasPrefix(upper, "SRID=") || strings.HasPrefix(upper, "POINT(") {
			return p.fromText(text)
		}
		return p.fromWKB(v)
	default:
		if stringer, ok := value.(fmt.Stringer); ok {
			return p.fromText(stringer.String())
		}
		return fmt.Errorf("point: unsupported scan type %T", value)
	}
}

func (p *Point) fromText(raw string) error {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(strings.ToUpper(raw), "SRID=") {
		if idx := strings.Index(raw, ";"); idx != -1 {
			raw = raw[idx+1:]
		}
	}

	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(strings.ToUpper(raw), "POINT(") || !strings.HasSuffix(raw, ")") {
		return fmt.Errorf("point: unsupported text %q", raw)
	}

	content := strings.TrimSpace(raw[len("POINT(") : len(raw)-1])
	segments := strings.Fields(content)
	if len(segments) != 2 {
		return fmt.Errorf("point: unexpected POINT content %q", content)
	}

	lng, err := parseCoordinate(segments[0])
	if err != nil {
		return err
	}
	lat, err := parseCoordinate(segments[1])
	if err != nil {
		return err
	}

	p.Lng = lng
	p.Lat = lat
	return nil
}

func (p *Point) fromWKB(raw []byte) error {
	if len(raw) < 21 {
		return fmt.Errorf("point: wkb too short")
	}

	var order binary.ByteOrder
	switch raw[0] {
	case 0:
		order = binary.BigEndian
	case 1:
		order = binary.LittleEndian
	default:
		return fmt.Errorf("point: invalid byte order %d", raw[0])
	}

	geomType := order.Uint32(raw[1:5])
	if geomType != 1 {
		return fmt.Errorf("point: unexpected geometry type %d", geomType)
	}

	p.Lng = math.Float64frombits(order.Uint64(raw[5:13]))
	p.Lat = math.Float64frombits(order.Uint64(raw[13:21]))
	return nil
}

func parseCoordinate(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("point: empty coordinate")
	}

	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("point: parse coordinate %w", err)
	}
	return f, nil
}
