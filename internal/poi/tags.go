package poi

// StringTag maps a scalar record field to a fixed OSM key
type StringTag struct {
	Key   string
	Value func(*Record) string
}

// BoolTag maps a yes/no amenity flag to a fixed OSM key
type BoolTag struct {
	Key   string
	Value func(*Record) *bool
}

// ScalarTag maps an EV charging attribute to a fixed OSM key
type ScalarTag struct {
	Key   string
	Value func(*Record) *Scalar
}

// FieldTags are written whenever the record field is non-empty
var FieldTags = []StringTag{
	{Key: "name", Value: func(r *Record) string { return r.Name }},
	{Key: "addr:city", Value: func(r *Record) string { return r.City }},
	{Key: "addr:postcode", Value: func(r *Record) string { return r.Postcode }},
	{Key: "addr:street", Value: func(r *Record) string { return r.Street }},
	{Key: "addr:housenumber", Value: func(r *Record) string { return r.HouseNumber }},
	{Key: "addr:conscriptionnumber", Value: func(r *Record) string { return r.ConscriptionNumber }},
	{Key: "branch", Value: func(r *Record) string { return r.Branch }},
	{Key: "email", Value: func(r *Record) string { return r.Email }},
}

// YesNoTags render as "yes"/"no" when the flag is known
var YesNoTags = []BoolTag{
	{Key: "fuel:adblue", Value: func(r *Record) *bool { return r.Amenities.FuelAdblue }},
	{Key: "fuel:octane_100", Value: func(r *Record) *bool { return r.Amenities.FuelOctane100 }},
	{Key: "fuel:octane_98", Value: func(r *Record) *bool { return r.Amenities.FuelOctane98 }},
	{Key: "fuel:octane_95", Value: func(r *Record) *bool { return r.Amenities.FuelOctane95 }},
	{Key: "fuel:GTL_diesel", Value: func(r *Record) *bool { return r.Amenities.FuelDieselGTL }},
	{Key: "fuel:diesel", Value: func(r *Record) *bool { return r.Amenities.FuelDiesel }},
	{Key: "fuel:lpg", Value: func(r *Record) *bool { return r.Amenities.FuelLPG }},
	{Key: "fuel:e85", Value: func(r *Record) *bool { return r.Amenities.FuelE85 }},
	{Key: "rent:lpg_bottles", Value: func(r *Record) *bool { return r.Amenities.RentLPGBottles }},
	{Key: "compressed_air", Value: func(r *Record) *bool { return r.Amenities.CompressedAir }},
	{Key: "restaurant", Value: func(r *Record) *bool { return r.Amenities.Restaurant }},
	{Key: "food", Value: func(r *Record) *bool { return r.Amenities.Food }},
	{Key: "truck", Value: func(r *Record) *bool { return r.Amenities.Truck }},
	{Key: "authentication:app", Value: func(r *Record) *bool { return r.Amenities.AuthenticationApp }},
	{Key: "authentication:membership_card", Value: func(r *Record) *bool { return r.Amenities.AuthenticationMembershipCard }},
	{Key: "fee", Value: func(r *Record) *bool { return r.Amenities.Fee }},
	{Key: "parking_fee", Value: func(r *Record) *bool { return r.Amenities.ParkingFee }},
	{Key: "motorcar", Value: func(r *Record) *bool { return r.Amenities.Motorcar }},
}

// EVTags are written verbatim, see Scalar.TagValue
var EVTags = []ScalarTag{
	{Key: "capacity", Value: func(r *Record) *Scalar { return r.Charging.Capacity }},
	{Key: "socket:chademo", Value: func(r *Record) *Scalar { return r.Charging.SocketChademo }},
	{Key: "socket:chademo:output", Value: func(r *Record) *Scalar { return r.Charging.SocketChademoOutput }},
	{Key: "socket:type2_combo", Value: func(r *Record) *Scalar { return r.Charging.SocketType2Combo }},
	{Key: "socket:type2_combo:output", Value: func(r *Record) *Scalar { return r.Charging.SocketType2ComboOut }},
	{Key: "socket:type2_cable", Value: func(r *Record) *Scalar { return r.Charging.SocketType2Cable }},
	{Key: "socket:type2_cable:output", Value: func(r *Record) *Scalar { return r.Charging.SocketType2CableOut }},
	{Key: "socket:type2", Value: func(r *Record) *Scalar { return r.Charging.SocketType2 }},
	{Key: "socket:type2:output", Value: func(r *Record) *Scalar { return r.Charging.SocketType2Output }},
	{Key: "manufacturer", Value: func(r *Record) *Scalar { return r.Charging.Manufacturer }},
	{Key: "model", Value: func(r *Record) *Scalar { return r.Charging.Model }},
}

// TestSeed lists the address fields echoed into the regression-test seed comment
type TestSeed struct {
	Original           string `json:"original"`
	Postcode           string `json:"postcode"`
	City               string `json:"city"`
	Street             string `json:"street"`
	HouseNumber        string `json:"housenumber"`
	ConscriptionNumber string `json:"conscriptionnumber"`
}

// Seed extracts the regression-test seed of a record
func (r *Record) Seed() TestSeed {
	return TestSeed{
		Original:           r.Original,
		Postcode:           r.Postcode,
		City:               r.City,
		Street:             r.Street,
		HouseNumber:        r.HouseNumber,
		ConscriptionNumber: r.ConscriptionNumber,
	}
}
