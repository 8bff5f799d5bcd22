// Package telegram validates Telegram Mini App init data.
package telegram

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

var (
	ErrMalformed   = errors.New("malformed init data")
	ErrMissingHash = errors.New("init data hash missing")
	ErrBadHash     = errors.New("init data hash mismatch")
	ErrExpired     = errors.New("init data expired")
	ErrNoUser      = errors.New("init data carries no user")
	ErrNoBotToken  = errors.New("bot token not configured")
)

// допустимый сдвиг часов клиента
const clockSkew = 5 * time.Minute

type WebAppUser struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// DisplayName picks the best available human-readable name.
func (u WebAppUser) DisplayName() string {
	if u.Username != "" {
		return u.Username
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

type InitData struct {
	User       WebAppUser
	StartParam string
	QueryID    string
	AuthDate   time.Time
}

// secretKey is HMAC-SHA256 of the bot token keyed with "WebAppData".
func secretKey(botToken string) []byte {
	h := hmac.New(sha256.New, []byte("WebAppData"))
	h.Write([]byte(botToken))
	return h.Sum(nil)
}

// dataCheckString joins all fields except hash as sorted key=value lines.
func dataCheckString(values url.Values) string {
	pairs := make([]string, 0, len(values))
	for k, v := range values {
		if k == "hash" {
			continue
		}
		pairs = append(pairs, k+"="+strings.Join(v, ""))
	}
	sort.Strings(pairs)
	return strings.Join(pairs, "\n")
}

// Sign returns the hash Telegram would attach to values.
func Sign(values url.Values, botToken string) string {
	h := hmac.New(sha256.New, secretKey(botToken))
	h.Write([]byte(dataCheckString(values)))
	return hex.EncodeToString(h.Sum(nil))
}

// Validate checks the signature and freshness of raw init data and decodes
// the user. maxAge <= 0 disables the freshness check. An empty botToken
// rejects everything: anyone can sign with the empty key.
func Validate(raw, botToken string, now time.Time, maxAge time.Duration) (*InitData, error) {
	if botToken == "" {
		return nil, ErrNoBotToken
	}
	values, err := url.ParseQuery(raw)
	if err != nil {
		return nil, ErrMalformed
	}

	provided, err := hex.DecodeString(values.Get("hash"))
	if err != nil || len(provided) == 0 {
		return nil, ErrMissingHash
	}
	expected, _ := hex.DecodeString(Sign(values, botToken))
	if !hmac.Equal(expected, provided) {
		return nil, ErrBadHash
	}

	authUnix, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
	if err != nil {
		return nil, ErrMalformed
	}
	authDate := time.Unix(authUnix, 0)
	if maxAge > 0 && (now.Sub(authDate) > maxAge || authDate.Sub(now) > clockSkew) {
		return nil, ErrExpired
	}

	var user WebAppUser
	if err := json.Unmarshal([]byte(values.Get("user")), &user); err != nil || user.ID <= 0 {
		return nil, ErrNoUser
	}

	return &InitData{
		User:       user,
		StartParam: values.Get("start_param"),
		QueryID:    values.Get("query_id"),
		AuthDate:   authDate,
	}, nil
}
