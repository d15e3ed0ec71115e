package domain

import "strings"

var gameVersions = map[string]string{
	"01": "1st Style",
	"02": "2nd Style",
	"03": "3rd Style",
	"04": "4th Style",
	"05": "5th Style",
	"06": "6th Style",
	"07": "7th Style",
	"08": "8th Style",
	"09": "9th Style",
	"10": "10th Style",
	"11": "IIDX RED",
	"12": "HAPPY SKY",
	"13": "DistorteD",
	"14": "GOLD",
	"15": "DJ TROOPERS",
	"16": "EMPRESS",
	"17": "SIRIUS",
	"18": "Resort Anthem",
	"19": "Lincle",
	"20": "Tricoro",
	"21": "SPADA",
	"22": "PENDUAL",
	"23": "Copula",
	"24": "SINOBUZ",
	"25": "CANNON BALLERS",
	"26": "Rootage",
	"27": "HEROIC VERSE",
	"28": "BISTROVER",
	"29": "Cast Hour",
	"30": "RESIDENT",
	"31": "EPOLIS",
}

// GameVersion maps the two-digit song id prefix to the game version name.
func GameVersion(songID string) string {
	if v, ok := gameVersions[VersionCode(songID)]; ok {
		return v
	}
	return "Unknown"
}

// VersionCode is the two-digit version prefix of a song id.
func VersionCode(songID string) string {
	if len(songID) < 2 {
		return ""
	}
	return songID[:2]
}

// ParseVersions turns a version filter such as "25, 26,27" into a set of version codes.
func ParseVersions(versions string) map[string]bool {
	out := map[string]bool{}
	for _, v := range strings.Split(versions, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out[v] = true
		}
	}
	return out
}
