package esign

import "time"

// EnvelopeDefinition is the provider-side request to create an envelope with
// its document and signers.
type EnvelopeDefinition struct {
	EmailSubject string     `json:"emailSubject"`
	Documents    []Document `json:"documents"`
	Recipients   Recipients `json:"recipients"`
	Status       string     `json:"status"`
}

type Document struct {
	DocumentBase64 string `json:"documentBase64"`
	Name           string `json:"name"`
	FileExtension  string `json:"fileExtension"`
	DocumentID     string `json:"documentId"`
}

type Recipients struct {
	Signers []Signer `json:"signers"`
}

// Signer is one recipient slot on an envelope. RecipientID is stable for the
// life of the envelope; ClientUserID is the per-signer embedded-signing
// identifier and must match when a signing view is requested.
type Signer struct {
	Email        string `json:"email"`
	Name         string `json:"name"`
	RecipientID  string `json:"recipientId"`
	RoutingOrder string `json:"routingOrder"`
	ClientUserID string `json:"clientUserId,omitempty"`
	Tabs         *Tabs  `json:"tabs,omitempty"`
}

type Tabs struct {
	SignHereTabs   []AnchorTab `json:"signHereTabs,omitempty"`
	DateSignedTabs []AnchorTab `json:"dateSignedTabs,omitempty"`
	FullNameTabs   []AnchorTab `json:"fullNameTabs,omitempty"`
}

// AnchorTab positions a field relative to an anchor string embedded in the
// rendered document.
type AnchorTab struct {
	AnchorString  string `json:"anchorString"`
	AnchorUnits   string `json:"anchorUnits,omitempty"`
	AnchorXOffset string `json:"anchorXOffset,omitempty"`
	AnchorYOffset string `json:"anchorYOffset,omitempty"`
}

type EnvelopeSummary struct {
	EnvelopeID string `json:"envelopeId"`
	Status     string `json:"status"`
}

// RecipientStatus is the provider's view of one signer's progress.
type RecipientStatus struct {
	RecipientID  string `json:"recipientId"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	Status       string `json:"status"`
	ClientUserID string `json:"clientUserId,omitempty"`
	SignedAt     string `json:"signedDateTime,omitempty"`
}

// Completed reports whether the recipient has finished signing.
func (r RecipientStatus) Completed() bool {
	return r.Status == "completed"
}

// SignedTime parses the provider's completion timestamp; nil when absent or
// unparseable.
func (r RecipientStatus) SignedTime() *time.Time {
	if r.SignedAt == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05.9999999Z"} {
		if t, err := time.Parse(layout, r.SignedAt); err == nil {
			return &t
		}
	}
	return nil
}

type RecipientsResponse struct {
	Signers []RecipientStatus `json:"signers"`
}

// RecipientViewRequest asks the provider for an embedded signing session URL.
type RecipientViewRequest struct {
	ReturnURL            string `json:"returnUrl"`
	AuthenticationMethod string `json:"authenticationMethod"`
	Email                string `json:"email"`
	UserName             string `json:"userName"`
	ClientUserID         string `json:"clientUserId"`
}

type recipientViewResponse struct {
	URL string `json:"url"`
}

// TokenResponse is the OAuth token endpoint reply.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// UserInfoResponse is the OAuth userinfo reply listing the accounts the
// authenticated user can act as.
type UserInfoResponse struct {
	Sub      string        `json:"sub"`
	Email    string        `json:"email"`
	Accounts []AccountInfo `json:"accounts"`
}

type AccountInfo struct {
	AccountID string `json:"account_id"`
	IsDefault bool   `json:"is_default"`
	BaseURI   string `json:"base_uri"`
}

// DefaultAccount returns the user's default account, falling back to the
// first listed one.
func (u *UserInfoResponse) DefaultAccount() *AccountInfo {
	for i := range u.Accounts {
		if u.Accounts[i].IsDefault {
			return &u.Accounts[i]
		}
	}
	if len(u.Accounts) > 0 {
		return &u.Accounts[0]
	}
	return nil
}
