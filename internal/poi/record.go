// Package poi defines the normalized point-of-interest records handed to the
// changeset engine by the data-source producers.
package poi

import (
	"fmt"

	"github.com/wegman-software/poimatch-go/internal/feature"
)

// Day holds the opening and closing time of one weekday ("08:00", "16:30").
// Empty Open means closed.
type Day struct {
	Open        string `json:"open,omitempty"`
	Close       string `json:"close,omitempty"`
	SummerOpen  string `json:"summer_open,omitempty"`
	SummerClose string `json:"summer_close,omitempty"`
}

// OpeningHours is the raw day/hour data a producer scraped
type OpeningHours struct {
	Days              [7]Day `json:"days"` // Monday first
	LunchBreakStart   string `json:"lunch_break_start,omitempty"`
	LunchBreakStop    string `json:"lunch_break_stop,omitempty"`
	Nonstop           bool   `json:"nonstop,omitempty"`
	PublicHolidayOpen *bool  `json:"public_holiday_open,omitempty"`
}

// Match links a record to an existing map feature
type Match struct {
	Feature  *feature.Feature `json:"feature,omitempty"`
	Distance *float64         `json:"distance,omitempty"` // meters
	Good     *string          `json:"good,omitempty"`
	Bad      *string          `json:"bad,omitempty"`
}

// Amenities are the named yes/no flags. Nil means unknown.
type Amenities struct {
	FuelAdblue                   *bool `json:"fuel_adblue,omitempty"`
	FuelOctane100                *bool `json:"fuel_octane_100,omitempty"`
	FuelOctane98                 *bool `json:"fuel_octane_98,omitempty"`
	FuelOctane95                 *bool `json:"fuel_octane_95,omitempty"`
	FuelDieselGTL                *bool `json:"fuel_diesel_gtl,omitempty"`
	FuelDiesel                   *bool `json:"fuel_diesel,omitempty"`
	FuelLPG                      *bool `json:"fuel_lpg,omitempty"`
	FuelE85                      *bool `json:"fuel_e85,omitempty"`
	RentLPGBottles               *bool `json:"rent_lpg_bottles,omitempty"`
	CompressedAir                *bool `json:"compressed_air,omitempty"`
	Restaurant                   *bool `json:"restaurant,omitempty"`
	Food                         *bool `json:"food,omitempty"`
	Truck                        *bool `json:"truck,omitempty"`
	AuthenticationApp            *bool `json:"authentication_app,omitempty"`
	AuthenticationMembershipCard *bool `json:"authentication_membership_card,omitempty"`
	Fee                          *bool `json:"fee,omitempty"`
	ParkingFee                   *bool `json:"parking_fee,omitempty"`
	Motorcar                     *bool `json:"motorcar,omitempty"`
}

// Charging holds the EV charging station attributes. Nil means unknown.
type Charging struct {
	Capacity            *Scalar `json:"capacity,omitempty"`
	SocketChademo       *Scalar `json:"socket_chademo,omitempty"`
	SocketChademoOutput *Scalar `json:"socket_chademo_output,omitempty"`
	SocketType2Combo    *Scalar `json:"socket_type2_combo,omitempty"`
	SocketType2ComboOut *Scalar `json:"socket_type2_combo_output,omitempty"`
	SocketType2Cable    *Scalar `json:"socket_type2_cable,omitempty"`
	SocketType2CableOut *Scalar `json:"socket_type2_cable_output,omitempty"`
	SocketType2         *Scalar `json:"socket_type2,omitempty"`
	SocketType2Output   *Scalar `json:"socket_type2_output,omitempty"`
	Manufacturer        *Scalar `json:"manufacturer,omitempty"`
	Model               *Scalar `json:"model,omitempty"`
}

// Record is one normalized point of interest. The engine never modifies it.
type Record struct {
	Code               string            `json:"code" validate:"required"`
	Name               string            `json:"name,omitempty"`
	Branch             string            `json:"branch,omitempty"`
	Original           string            `json:"original,omitempty"` // address as scraped
	Postcode           string            `json:"postcode,omitempty"`
	City               string            `json:"city,omitempty"`
	Street             string            `json:"street,omitempty"`
	HouseNumber        string            `json:"housenumber,omitempty"`
	ConscriptionNumber string            `json:"conscriptionnumber,omitempty"`
	Lat                float64           `json:"lat" validate:"latitude"`
	Lon                float64           `json:"lon" validate:"longitude"`
	OpeningHours       OpeningHours      `json:"opening_hours"`
	CommonTags         map[string]string `json:"common_tags,omitempty"`
	URLBase            string            `json:"url_base,omitempty"`
	Website            string            `json:"website,omitempty"`
	Phone              string            `json:"phone,omitempty"`
	Email              string            `json:"email,omitempty"`
	Description        string            `json:"description,omitempty"`
	Amenities          Amenities         `json:"amenities"`
	Charging           Charging          `json:"charging"`

	PreserveOriginalName bool `json:"preserve_original_name,omitempty"`
	New                  bool `json:"new,omitempty"`

	Match *Match `json:"match,omitempty"`
}

// Feature returns the matched feature or nil
func (r *Record) Feature() *feature.Feature {
	if r.Match == nil {
		return nil
	}
	return r.Match.Feature
}

// LiveTags returns the tags of the matched feature, nil for new POIs
func (r *Record) LiveTags() map[string]string {
	if f := r.Feature(); f != nil {
		return f.Tags
	}
	return nil
}

// Geom renders the original coordinates as WKT
func (r *Record) Geom() string {
	return fmt.Sprintf("POINT(%v %v)", r.Lon, r.Lat)
}
