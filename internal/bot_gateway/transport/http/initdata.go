package http

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Telegram WebApp initData verification, per
// https://core.telegram.org/bots/webapps#validating-data-received-via-the-mini-app

var (
	ErrInitDataInvalid = errors.New("init data signature is invalid")
	ErrInitDataExpired = errors.New("init data is too old")
)

// initDataMaxAge bounds how old a signed initData payload may be before it
// is rejected as a possible replay.
const initDataMaxAge = 24 * time.Hour

// webAppUser is the "user" field embedded in initData.
type webAppUser struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username,omitempty"`
}

// verifyInitData checks the HMAC signature and freshness of a raw initData
// query string and returns the embedded Telegram user.
func verifyInitData(initData string, botToken string, now time.Time) (*webAppUser, error) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, fmt.Errorf("failed to parse init data: %w", err)
	}

	gotHash := values.Get("hash")
	if gotHash == "" {
		return nil, ErrInitDataInvalid
	}
	values.Del("hash")

	// Data-check string: sorted key=value pairs joined with newlines.
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+values.Get(k))
	}
	dataCheckString := strings.Join(pairs, "\n")

	secretKey := hmacSHA256([]byte(botToken), []byte("WebAppData"))
	expected := hex.EncodeToString(hmacSHA256([]byte(dataCheckString), secretKey))
	if !hmac.Equal([]byte(expected), []byte(gotHash)) {
		return nil, ErrInitDataInvalid
	}

	authDate, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
	if err != nil {
		return nil, ErrInitDataInvalid
	}
	if now.Sub(time.Unix(authDate, 0)) > initDataMaxAge {
		return nil, ErrInitDataExpired
	}

	var user webAppUser
	if err := json.Unmarshal([]byte(values.Get("user")), &user); err != nil {
		return nil, fmt.Errorf("failed to decode init data user: %w", err)
	}
	if user.ID == 0 {
		return nil, ErrInitDataInvalid
	}
	return &user, nil
}

func hmacSHA256(data, key []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return mac.Sum(nil)
}
