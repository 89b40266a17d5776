// Package models defines the data models used in the application.
package models

// DictType partitions reference-data entries.
type DictType string

// Possible values for DictType
const (
	DictSpecies  DictType = "species"
	DictState    DictType = "state"
	DictBadState DictType = "badState"
)

// DictTypes lists every dictionary in listing order.
var DictTypes = []DictType{DictSpecies, DictState, DictBadState}

// ParseDictType returns the DictType named s.
func ParseDictType(s string) (DictType, bool) {
	for _, t := range DictTypes {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// DictItem is a reference-data entry (species, health state or bad state).
type DictItem struct {
	// DynamoDB keys
	Type DictType `dynamodbav:"type" json:"type"` // partition
	ID   string   `dynamodbav:"id" json:"id"`     // sort, UUID

	Name     string `dynamodbav:"name" json:"name"`
	Position int    `dynamodbav:"position" json:"-"` // insertion order
}

// Location is the structured geocoder answer stored with a tree.
type Location struct {
	FormattedAddress string  `dynamodbav:"formatted_address" json:"formattedAddress"`
	Street           string  `dynamodbav:"street,omitempty" json:"street,omitempty"`
	HouseNumber      string  `dynamodbav:"house_number,omitempty" json:"houseNumber,omitempty"`
	Suburb           string  `dynamodbav:"suburb,omitempty" json:"suburb,omitempty"`
	City             string  `dynamodbav:"city,omitempty" json:"city,omitempty"`
	Postcode         string  `dynamodbav:"postcode,omitempty" json:"postcode,omitempty"`
	County           string  `dynamodbav:"county,omitempty" json:"county,omitempty"`
	State            string  `dynamodbav:"state,omitempty" json:"state,omitempty"`
	Country          string  `dynamodbav:"country,omitempty" json:"country,omitempty"`
	CountryCode      string  `dynamodbav:"country_code,omitempty" json:"countryCode,omitempty"`
	Latitude         float64 `dynamodbav:"lat" json:"lat"`
	Longitude        float64 `dynamodbav:"lon" json:"lon"`
}

// Tree is a persisted user submission describing one tree observation.
type Tree struct {
	// DynamoDB keys
	PK string `dynamodbav:"PK" json:"-"` // USER#<sub>
	SK string `dynamodbav:"SK" json:"-"` // TREE#<treeID> (ULID)

	ID               string    `dynamodbav:"tree_id" json:"id"`
	TreeImageURL     string    `dynamodbav:"tree_image_url" json:"treeImageUrl"`
	TreeThumbnailURL string    `dynamodbav:"tree_thumbnail_url" json:"treeThumbnailUrl"`
	LeafImageURL     string    `dynamodbav:"leaf_image_url" json:"leafImageUrl"`
	BarkImageURL     string    `dynamodbav:"bark_image_url,omitempty" json:"barkImageUrl,omitempty"`
	Species          string    `dynamodbav:"species" json:"species"`
	Description      string    `dynamodbav:"description,omitempty" json:"description,omitempty"`
	Perimeter        float64   `dynamodbav:"perimeter" json:"perimeter"`
	State            string    `dynamodbav:"state" json:"state"`
	BadState         string    `dynamodbav:"bad_state,omitempty" json:"badState,omitempty"`
	StateDescription string    `dynamodbav:"state_description,omitempty" json:"stateDescription,omitempty"`
	LatLong          string    `dynamodbav:"lat_long" json:"latLong"`
	Address          string    `dynamodbav:"address" json:"address"`
	GeocoderInfo     *Location `dynamodbav:"geocoder_info,omitempty" json:"geocoderInfo,omitempty"`
	PhotoGPS         *GeoPoint `dynamodbav:"photo_gps,omitempty" json:"photoGps,omitempty"` // from the tree photo's EXIF
	UserID           string    `dynamodbav:"user_id" json:"userId"`
	CreatedAt        string    `dynamodbav:"created_at" json:"createdAt"` // ISO8601
}

// BlobURLs returns every blob URL the tree references.
func (t Tree) BlobURLs() []string {
	urls := []string{t.TreeImageURL, t.TreeThumbnailURL, t.LeafImageURL}
	if t.BarkImageURL != "" {
		urls = append(urls, t.BarkImageURL)
	}
	return urls
}

// GeoPoint is a coordinate pair in decimal degrees.
type GeoPoint struct {
	Latitude  float64 `dynamodbav:"lat" json:"lat"`
	Longitude float64 `dynamodbav:"lon" json:"lon"`
}

// LeaderboardEntry is a user's gamification score.
type LeaderboardEntry struct {
	// DynamoDB keys
	PK string `dynamodbav:"PK" json:"-"` // USER#<sub>

	UserID    string `dynamodbav:"user_id" json:"-"`
	UserName  string `dynamodbav:"user_name" json:"userName"`
	Points    int    `dynamodbav:"points" json:"points"`
	UpdatedAt string `dynamodbav:"updated_at" json:"-"`
}
