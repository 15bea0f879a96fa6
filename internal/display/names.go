package display

import (
	"regexp"
	"strings"

	"github.com/sansad-av/talktime/internal/broadcast"
)

// Placeholder is shown in place of any value that hasn't been supplied
const Placeholder = "–"

// UnknownSeat is shown when a member's seat number is missing
const UnknownSeat = "?"

// NotSelected is shown in the chair line when no chairperson has been chosen
const NotSelected = "Not Selected"

var inTheChairPattern = regexp.MustCompile(`(?i)in\s+the\s+chair`)

// ChairLine formats the presiding officer for the "In The Chair" line. The Chairman
// and Deputy Chairman are shown by title alone; a generic "In The Chair" position shows
// only the name; any other position is shown alongside the name.
func ChairLine(c broadcast.Chair) string {
	position := strings.TrimSpace(c.Position)
	switch strings.ToLower(position) {
	case "chairman":
		return "HON'BLE CHAIRMAN"
	case "deputy chairman":
		return "DEPUTY CHAIRMAN"
	}
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return NotSelected
	}
	if position != "" && !inTheChairPattern.MatchString(position) {
		return position + " - " + name
	}
	return name
}

var partyFullNames = map[string]string{
	"BJP":     "Bharatiya Janata Party",
	"INC":     "Indian National Congress",
	"AAP":     "Aam Aadmi Party",
	"TMC":     "All India Trinamool Congress",
	"AITC":    "All India Trinamool Congress",
	"TMC(M)":  "Tamil Manila Congress (Moopanar)",
	"DMK":     "Dravida Munnetra Kazhagam",
	"AIADMK":  "All India Anna Dravida Munnetra Kazhagam",
	"SP":      "Samajwadi Party",
	"BSP":     "Bahujan Samaj Party",
	"NCP":     "Nationalist Congress Party",
	"NCP-SCP": "Nationalist Congress Party (Sharad Chandra Pawar)",
	"SS":      "Shiv Sena",
	"SS-UBT":  "Shiv Sena (Uddhav Balasaheb Thackeray)",
	"TDP":     "Telugu Desam Party",
	"YSRCP":   "YSR Congress Party",
	"JD(U)":   "Janata Dal (United)",
	"JDU":     "Janata Dal (United)",
	"JD(S)":   "Janata Dal (Secular)",
	"RJD":     "Rashtriya Janata Dal",
	"RLD":     "Rashtriya Lok Dal",
	"BJD":     "Biju Janata Dal",
	"CPI":     "Communist Party of India",
	"CPI(M)":  "Communist Party of India (Marxist)",
	"CPIM":    "Communist Party of India (Marxist)",
	"BRS":     "Bharat Rashtra Samithi",
	"TRS":     "Telangana Rashtra Samithi",
	"JMM":     "Jharkhand Mukti Morcha",
	"SAD":     "Shiromani Akali Dal",
	"AGP":     "Asom Gana Parishad",
	"IUML":    "Indian Union Muslim League",
	"KC(M)":   "Kerala Congress (M)",
	"MNF":     "Mizo National Front",
	"NPP":     "National People's Party",
	"RPI(A)":  "Republican Party of India (Athawale)",
	"UPP(L)":  "United People's Party (Liberal)",
}

var spaceBeforeParen = regexp.MustCompile(`\s+\(`)

// FullPartyName expands a party abbreviation for display. Nominated, independent and
// "Others" members keep their short labels.
func FullPartyName(party string) string {
	upper := strings.ToUpper(strings.TrimSpace(party))
	switch upper {
	case "":
		return Placeholder
	case "NOM", "NOMINATED":
		return "NOM"
	case "IND", "INDEPENDENT":
		return "IND"
	case "OTH", "OTHERS":
		return "OTH"
	case "CONGRESS":
		return partyFullNames["INC"]
	}
	if full, ok := partyFullNames[spaceBeforeParen.ReplaceAllString(upper, "(")]; ok {
		return full
	}
	return strings.TrimSpace(party)
}

// ShortPartyName abbreviates a party name to fit the allocation table: nominated
// members are NOM, multi-word names become an acronym of at most six letters, and
// anything else is cut to ten characters
func ShortPartyName(party string) string {
	upper := strings.ToUpper(strings.TrimSpace(party))
	if upper == "" {
		return Placeholder
	}
	if strings.Contains(upper, "NOM") {
		return "NOM"
	}
	words := strings.Fields(upper)
	if len(words) > 1 {
		acronym := make([]rune, 0, len(words))
		for _, w := range words {
			acronym = append(acronym, []rune(w)[0])
		}
		if len(acronym) > 6 {
			acronym = acronym[:6]
		}
		return string(acronym)
	}
	if r := []rune(upper); len(r) > 10 {
		return string(r[:10])
	}
	return upper
}

func orPlaceholder(s string) string {
	if strings.TrimSpace(s) == "" {
		return Placeholder
	}
	return s
}
