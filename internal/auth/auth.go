// ABOUTME: Authentication provider contract and an identity-file backed implementation.
// ABOUTME: Gates write actions and renders the logged-out banner.
package auth

import (
	"errors"
)

// ErrNotSignedIn is returned by actions that need a signed-in user.
var ErrNotSignedIn = errors.New("not signed in - run 'chirp login <name>' first")

// BannerText is shown to signed-out users.
const BannerText = "Do not miss out"

// Provider reports sign-in state and can ask the user to sign in.
type Provider interface {
	IsSignedIn() bool

	// PromptSignIn triggers the sign-in flow without waiting for it.
	PromptSignIn()
}

// IdentitySource returns the current identity, empty when signed out.
type IdentitySource interface {
	GetIdentity() (string, error)
}

// IdentityProvider derives sign-in state from a persisted identity.
type IdentityProvider struct {
	identities IdentitySource
	prompt     func()
}

// NewIdentityProvider creates a provider. prompt may be nil.
func NewIdentityProvider(identities IdentitySource, prompt func()) *IdentityProvider {
	return &IdentityProvider{identities: identities, prompt: prompt}
}

// IsSignedIn returns true when an identity is set.
func (p *IdentityProvider) IsSignedIn() bool {
	name, err := p.identities.GetIdentity()
	return err == nil && name != ""
}

// PromptSignIn calls the prompt hook, if any.
func (p *IdentityProvider) PromptSignIn() {
	if p.prompt != nil {
		p.prompt()
	}
}

// Require returns ErrNotSignedIn and prompts when p is signed out.
// A nil provider allows everything.
func Require(p Provider) error {
	if p == nil || p.IsSignedIn() {
		return nil
	}
	p.PromptSignIn()
	return ErrNotSignedIn
}

// Banner returns the logged-out banner, or "" when signed in.
func Banner(p Provider) string {
	if p == nil || p.IsSignedIn() {
		return ""
	}
	return BannerText
}
