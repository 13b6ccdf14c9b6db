package credentials

import "strings"

// Persisted keys of the metadata table.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyUserID       = "user_id"
)

// Keys lists every credential key, in storage order.
var Keys = []string{KeyAccessToken, KeyRefreshToken, KeyUserID}

// Record is the persisted session. An empty field means absent.
type Record struct {
	AccessToken  string
	RefreshToken string
	UserID       string
}

// Authenticated reports whether the record carries a non-blank access token.
func (r Record) Authenticated() bool {
	return strings.TrimSpace(r.AccessToken) != ""
}

// IsZero reports whether no field is set.
func (r Record) IsZero() bool {
	return r == Record{}
}

// normalized trims blanks so a whitespace-only token counts as absent.
func (r Record) normalized() Record {
	return Record{
		AccessToken:  strings.TrimSpace(r.AccessToken),
		RefreshToken: strings.TrimSpace(r.RefreshToken),
		UserID:       strings.TrimSpace(r.UserID),
	}
}

// merge overlays the non-empty fields of update on r.
func (r Record) merge(update Record) Record {
	if update.AccessToken != "" {
		r.AccessToken = update.AccessToken
	}
	if update.RefreshToken != "" {
		r.RefreshToken = update.RefreshToken
	}
	if update.UserID != "" {
		r.UserID = update.UserID
	}
	return r
}

func (r Record) toMap() map[string]string {
	return map[string]string{
		KeyAccessToken:  r.AccessToken,
		KeyRefreshToken: r.RefreshToken,
		KeyUserID:       r.UserID,
	}
}

func fromMap(m map[string]string) Record {
	return Record{
		AccessToken:  m[KeyAccessToken],
		RefreshToken: m[KeyRefreshToken],
		UserID:       m[KeyUserID],
	}
}
