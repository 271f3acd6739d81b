package document

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/mel-roster/internal/model"
)

// DefaultTTL applies when a Vault is built without a TTL.
const DefaultTTL = time.Hour

// ErrEmptyDocument means the roster service produced a document with no
// bytes.
var ErrEmptyDocument = errors.New("the roster service returned an empty document")

// Handle points at a stored document.  Token is what a client presents to
// download it.
type Handle struct {
	Key         string    `json:"-"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Size        int       `json:"size"`
	Token       string    `json:"token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Vault stores documents and issues download tokens for them.
type Vault struct {
	store  Store
	signer *Signer
	ttl    time.Duration
}

// NewVault combines a store and a signer.
func NewVault(store Store, signer *Signer, ttl time.Duration) *Vault {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Vault{store: store, signer: signer, ttl: ttl}
}

// Put stores a generated MEL and returns its handle.
func (v *Vault) Put(ctx context.Context, kind model.Kind, sessionID string, data []byte, contentType string) (Handle, error) {
	if len(data) == 0 {
		return Handle{}, ErrEmptyDocument
	}
	if contentType == "" {
		contentType = "application/pdf"
	}
	key := uuid.NewString()
	doc := Document{Filename: Filename(kind, sessionID), ContentType: contentType, Data: data}
	if err := v.store.Save(ctx, key, doc, v.ttl); err != nil {
		return Handle{}, err
	}
	token, exp, err := v.signer.Issue(key, sessionID, kind, v.ttl)
	if err != nil {
		_ = v.store.Delete(ctx, key)
		return Handle{}, err
	}
	return Handle{
		Key:         key,
		Filename:    doc.Filename,
		ContentType: contentType,
		Size:        len(data),
		Token:       token,
		ExpiresAt:   exp,
	}, nil
}

// Open verifies token and returns the document it grants.
func (v *Vault) Open(ctx context.Context, token string) (Document, error) {
	c, err := v.signer.Verify(token)
	if err != nil {
		return Document{}, err
	}
	doc, err := v.store.Load(ctx, c.Key())
	if err != nil {
		return Document{}, err
	}
	if want := Filename(c.Kind, c.SessionID); doc.Filename != want {
		return Document{}, fmt.Errorf("%w: token does not match document", ErrInvalidToken)
	}
	return doc, nil
}

// Discard removes the document behind h.  Unknown keys are ignored.
func (v *Vault) Discard(ctx context.Context, h Handle) error {
	if h.Key == "" {
		return nil
	}
	return v.store.Delete(ctx, h.Key)
}
