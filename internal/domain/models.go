// Package domain provides domain models for the application
package domain

import (
	"time"

	"github.com/goccy/go-json"
)

// Fixed orbital figures reported with every ISS position
const (
	IssAltitudeKm     = 408
	IssVelocityKmS    = 7.66
	IssVisibilityDay  = "day"
	DefaultRetryAfter = "60"
)

// IssPosition is the normalized ISS position returned by /api/iss
type IssPosition struct {
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	Altitude   float64 `json:"altitude"`
	Velocity   float64 `json:"velocity"`
	Timestamp  int64   `json:"timestamp"`
	Visibility string  `json:"visibility"`
}

// Time returns the position timestamp as a time value
func (p IssPosition) Time() time.Time {
	return time.Unix(p.Timestamp, 0).UTC()
}

// OpenNotifyResponse is the raw open-notify iss-now payload
type OpenNotifyResponse struct {
	Message     string `json:"message"`
	Timestamp   int64  `json:"timestamp"`
	IssPosition *struct {
		Latitude  string `json:"latitude"`
		Longitude string `json:"longitude"`
	} `json:"iss_position"`
}

// Apod is the subset of the APOD payload mirrored into the persistent store
type Apod struct {
	Date        string `json:"date"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	HdURL       string `json:"hdurl"`
	Explanation string `json:"explanation"`
	MediaType   string `json:"media_type,omitempty"`
}

// MarsCamera describes the camera that took a photo
type MarsCamera struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	RoverID  int    `json:"rover_id"`
	FullName string `json:"full_name"`
}

// MarsRover describes the rover metadata attached to a photo
type MarsRover struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	LandingDate string `json:"landing_date"`
	LaunchDate  string `json:"launch_date"`
	Status      string `json:"status"`
}

// MarsPhoto is a single rover photo record
type MarsPhoto struct {
	ID        int        `json:"id"`
	Sol       int        `json:"sol"`
	Camera    MarsCamera `json:"camera"`
	ImgSrc    string     `json:"img_src"`
	EarthDate string     `json:"earth_date"`
	Rover     MarsRover  `json:"rover"`
}

// MarsPhotosResponse is the payload of /api/mars
type MarsPhotosResponse struct {
	Photos []MarsPhoto `json:"photos"`
}

// ManifestDay is one per-sol entry of a mission manifest
type ManifestDay struct {
	Sol         int      `json:"sol"`
	EarthDate   string   `json:"earth_date"`
	TotalPhotos int      `json:"total_photos"`
	Cameras     []string `json:"cameras"`
}

// PhotoManifest is the per-rover mission summary
type PhotoManifest struct {
	Name        string        `json:"name"`
	LandingDate string        `json:"landing_date"`
	LaunchDate  string        `json:"launch_date"`
	Status      string        `json:"status"`
	MaxSol      int           `json:"max_sol"`
	MaxDate     string        `json:"max_date"`
	TotalPhotos int           `json:"total_photos"`
	Photos      []ManifestDay `json:"photos"`
}

// MissionManifest is the payload of /api/mars/manifest
type MissionManifest struct {
	PhotoManifest PhotoManifest `json:"photo_manifest"`
}

// MarsQuery identifies one rover photo query
type MarsQuery struct {
	Rover     string
	EarthDate string
	Sol       *int
	Camera    string
}

// Health represents health check response
type Health struct {
	Status string    `json:"status"`
	Now    time.Time `json:"now"`
}

// ErrorBody is the JSON error envelope returned by every /api endpoint
type ErrorBody struct {
	Error      string `json:"error"`
	Details    string `json:"details,omitempty"`
	RetryAfter string `json:"retryAfter,omitempty"`
}

// DiagnosticReport is returned by /api/test-nasa
type DiagnosticReport struct {
	Success bool `json:"success"`
	Apod    struct {
		Title string `json:"title"`
		Date  string `json:"date"`
	} `json:"apod"`
	Mars struct {
		Rover       string  `json:"rover"`
		Date        string  `json:"date"`
		PhotoCount  int     `json:"photoCount"`
		SamplePhoto *string `json:"samplePhoto"`
	} `json:"mars"`
}

// ErrorResponse creates an error envelope
func ErrorResponse(message, details string) ErrorBody {
	return ErrorBody{Error: message, Details: details}
}

// HasFields reports whether a JSON object contains every named top-level field
func HasFields(data json.RawMessage, fields ...string) (string, bool) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		if len(fields) > 0 {
			return fields[0], false
		}
		return "", false
	}
	for _, f := range fields {
		v, ok := m[f]
		if !ok || string(v) == "null" {
			return f, false
		}
	}
	return "", true
}
