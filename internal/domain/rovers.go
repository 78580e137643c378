package domain

import (
	"sort"
	"strings"
)

// RoverInfo is the static catalog entry for one rover
type RoverInfo struct {
	Key              string
	Name             string
	LaunchDate       string
	LandingDate      string
	Status           string
	DefaultDate      string
	MissionStartDate string
	// MissionEndDate is empty for active missions
	MissionEndDate string
	Cameras        []string
	Disabled       bool
	GalleryURL     string
}

const merGallery = "https://mars.nasa.gov/mer/gallery/all/"

// Rovers lists every rover the dashboard knows about
var Rovers = map[string]RoverInfo{
	"curiosity": {
		Key:              "curiosity",
		Name:             "Curiosity",
		LaunchDate:       "2011-11-26",
		LandingDate:      "2012-08-06",
		Status:           "Active",
		DefaultDate:      "2012-08-08",
		MissionStartDate: "2012-08-06",
		Cameras:          []string{"FHAZ", "RHAZ", "MAST", "CHEMCAM", "MAHLI", "MARDI", "NAVCAM"},
	},
	"perseverance": {
		Key:              "perseverance",
		Name:             "Perseverance",
		LaunchDate:       "2020-07-30",
		LandingDate:      "2021-02-18",
		Status:           "Active",
		DefaultDate:      "2021-02-18",
		MissionStartDate: "2021-02-18",
		Cameras: []string{
			"EDL_RUCAM", "EDL_RDCAM", "EDL_DDCAM", "EDL_PUCAM1", "EDL_PUCAM2",
			"NAVCAM_LEFT", "NAVCAM_RIGHT", "MCZ_RIGHT", "MCZ_LEFT",
			"FRONT_HAZCAM_LEFT_A", "FRONT_HAZCAM_RIGHT_A", "REAR_HAZCAM_LEFT", "REAR_HAZCAM_RIGHT",
			"SKYCAM", "SHERLOC_WATSON", "SUPERCAM_RMI", "PIXL_MCC",
		},
	},
	"opportunity": {
		Key:              "opportunity",
		Name:             "Opportunity",
		LaunchDate:       "2003-07-07",
		LandingDate:      "2004-01-25",
		Status:           "End of Mission",
		DefaultDate:      "2004-01-27",
		MissionStartDate: "2004-01-25",
		MissionEndDate:   "2019-02-13",
		Disabled:         true,
		GalleryURL:       merGallery,
	},
	"spirit": {
		Key:              "spirit",
		Name:             "Spirit",
		LaunchDate:       "2003-06-10",
		LandingDate:      "2004-01-04",
		Status:           "End of Mission",
		DefaultDate:      "2004-01-06",
		MissionStartDate: "2004-01-04",
		MissionEndDate:   "2011-05-25",
		Disabled:         true,
		GalleryURL:       merGallery,
	},
}

// DefaultRover is selected when a browsing session starts
const DefaultRover = "curiosity"

// CameraNames maps camera abbreviations to display names
var CameraNames = map[string]string{
	"FHAZ":                 "Front Hazard Avoidance Camera",
	"RHAZ":                 "Rear Hazard Avoidance Camera",
	"MAST":                 "Mast Camera",
	"CHEMCAM":              "Chemistry and Camera Complex",
	"MAHLI":                "Mars Hand Lens Imager",
	"MARDI":                "Mars Descent Imager",
	"NAVCAM":               "Navigation Camera",
	"PANCAM":               "Panoramic Camera",
	"MINITES":              "Miniature Thermal Emission Spectrometer (Mini-TES)",
	"EDL_RUCAM":            "Entry, Descent, and Landing Rover Up-Look Camera",
	"EDL_RDCAM":            "Entry, Descent, and Landing Rover Down-Look Camera",
	"EDL_DDCAM":            "Entry, Descent, and Landing Descent Stage Down-Look Camera",
	"EDL_PUCAM1":           "Entry, Descent, and Landing Parachute Up-Look Camera A",
	"EDL_PUCAM2":           "Entry, Descent, and Landing Parachute Up-Look Camera B",
	"NAVCAM_LEFT":          "Navigation Camera - Left",
	"NAVCAM_RIGHT":         "Navigation Camera - Right",
	"MCZ_RIGHT":            "Mast Camera Zoom - Right",
	"MCZ_LEFT":             "Mast Camera Zoom - Left",
	"FRONT_HAZCAM_LEFT_A":  "Front Hazard Avoidance Camera - Left A",
	"FRONT_HAZCAM_RIGHT_A": "Front Hazard Avoidance Camera - Right A",
	"REAR_HAZCAM_LEFT":     "Rear Hazard Avoidance Camera - Left",
	"REAR_HAZCAM_RIGHT":    "Rear Hazard Avoidance Camera - Right",
	"SKYCAM":               "SkyCam",
	"SHERLOC_WATSON":       "SHERLOC WATSON Camera",
	"SUPERCAM_RMI":         "SuperCam Remote Micro-Imager",
	"PIXL_MCC":             "PIXL Micro-Context Camera",
}

// LookupRover finds a rover by key, case-insensitively
func LookupRover(key string) (RoverInfo, bool) {
	r, ok := Rovers[strings.ToLower(key)]
	return r, ok
}

// RoverKeys returns the known rover keys in sorted order
func RoverKeys() []string {
	keys := make([]string, 0, len(Rovers))
	for k := range Rovers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CameraDisplayName returns the full camera name, or the abbreviation if unknown
func CameraDisplayName(abbrev string) string {
	if name, ok := CameraNames[abbrev]; ok {
		return name
	}
	return abbrev
}
