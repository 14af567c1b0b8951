// package cards recognizes the links printed as QR codes on game cards.
//
// Two link shapes are understood, each with or without an http(s) scheme:
//
//	www.hitstergame.com/<lang path>/<digits>
//	app.hitsternordics.com/resources/songs/<digits>
//
// The lang path may contain slashes (for example "de/aaaa0007"); they are replaced by dashes to form the deck id.
// Anything else is not a card and is reported as unrecognized rather than as an error.
package cards

import (
	"regexp"
	"strings"

	"github.com/desertthunder/hitqr/internal/models"
)

// NordicsDeck is the deck id used for every app.hitsternordics.com card.
const NordicsDeck = "nordics"

var (
	gamePattern    = regexp.MustCompile(`^(?:https?://)?www\.hitstergame\.com/(.+?)/(\d+)$`)
	nordicsPattern = regexp.MustCompile(`^(?:https?://)?app\.hitsternordics\.com/resources/songs/(\d+)$`)
)

// Parse extracts the deck and card id from a scanned card link.
//
// It returns nil, false for anything that is not a card link. The card id is returned as printed, leading zeros included.
func Parse(raw string) (*models.CardReference, bool) {
	link := strings.TrimSpace(raw)

	if m := gamePattern.FindStringSubmatch(link); m != nil {
		return &models.CardReference{DeckID: strings.ReplaceAll(m[1], "/", "-"), CardID: m[2]}, true
	}

	if m := nordicsPattern.FindStringSubmatch(link); m != nil {
		return &models.CardReference{DeckID: NordicsDeck, CardID: m[1]}, true
	}

	return nil, false
}

// IsRecognizedLink reports whether raw is a card link, exactly when [Parse] succeeds.
func IsRecognizedLink(raw string) bool {
	_, ok := Parse(raw)
	return ok
}

// NormalizeCardID strips the zero padding printed on cards so the id matches the catalog key.
//
// An id made only of zeros normalizes to the empty string, which matches no catalog row.
func NormalizeCardID(id string) string {
	return strings.TrimLeft(id, "0")
}
