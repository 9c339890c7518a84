package analyze

import (
	"path"
	"strconv"
	"strings"
	"time"
)

// GameMeta is the per-game context extracted from PGN tags. Missing
// tags leave zero values.
type GameMeta struct {
	White       string
	Black       string
	WhiteElo    int
	BlackElo    int
	TimeControl string
	Result      string
	ECO         string
	Opening     string
	GameURL     string
	EndTime     int64
}

// MetaFromTags reads the tag set chess.com emits. Lichess exports work
// too; both put the game URL in either Link or Site.
func MetaFromTags(tags map[string]string) GameMeta {
	m := GameMeta{
		White:       tags["White"],
		Black:       tags["Black"],
		WhiteElo:    parseRating(tags["WhiteElo"]),
		BlackElo:    parseRating(tags["BlackElo"]),
		TimeControl: tags["TimeControl"],
		Result:      tags["Result"],
		ECO:         tags["ECO"],
		Opening:     tags["Opening"],
		GameURL:     tags["Link"],
	}
	if m.GameURL == "" && strings.HasPrefix(tags["Site"], "http") {
		m.GameURL = tags["Site"]
	}
	if m.Opening == "" {
		m.Opening = openingFromECOUrl(tags["ECOUrl"])
	}
	m.EndTime = parseEndTime(tags["UTCDate"], tags["UTCTime"])
	return m
}

// PlayerElo returns the rating of the named player, 0 when unknown.
func (m GameMeta) PlayerElo(username string) int {
	u := strings.ToLower(strings.TrimSpace(username))
	switch u {
	case strings.ToLower(m.White):
		return m.WhiteElo
	case strings.ToLower(m.Black):
		return m.BlackElo
	}
	return 0
}

// Opponent returns the other player's name, "" when the username
// matches neither side.
func (m GameMeta) Opponent(username string) string {
	u := strings.ToLower(strings.TrimSpace(username))
	switch u {
	case strings.ToLower(m.White):
		return m.Black
	case strings.ToLower(m.Black):
		return m.White
	}
	return ""
}

func parseRating(s string) int {
	if s == "" || s == "?" || s == "-" {
		return 0
	}
	rating, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return rating
}

// parseEndTime converts the PGN UTC tag pair to epoch seconds.
func parseEndTime(date, clock string) int64 {
	if date == "" {
		return 0
	}
	if clock == "" {
		clock = "00:00:00"
	}
	t, err := time.Parse("2006.01.02 15:04:05", date+" "+clock)
	if err != nil {
		return 0
	}
	return t.Unix()
}

// openingFromECOUrl turns chess.com's ECOUrl tag, which ends in a
// hyphenated opening name, into a readable one.
func openingFromECOUrl(u string) string {
	if u == "" {
		return ""
	}
	name := strings.ReplaceAll(path.Base(u), "-", " ")
	// Variation URLs carry a trailing move list like "...Attack 3.Nc3".
	if i := strings.IndexFunc(name, func(r rune) bool { return r >= '0' && r <= '9' }); i > 0 {
		name = strings.TrimSpace(name[:i])
	}
	return name
}
