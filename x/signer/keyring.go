// Package signer holds the identities the node may sign for
package signer

import (
	"context"
	"strings"

	"github.com/nbd-wtf/go-nostr"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"

	"github.com/totegamma/groupsync/core"
)

var tracer = otel.Tracer("signer")

type keyring struct {
	keys          map[string]string
	allowUnsigned bool
}

// NewKeyring maps every configured hex secret key to its public key
func NewKeyring(config core.Config) (core.Signer, error) {
	keys := make(map[string]string, len(config.SecretKeys))
	for i, sk := range config.SecretKeys {
		sk = strings.TrimSpace(sk)
		pk, err := nostr.GetPublicKey(sk)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid secret key #%d", i)
		}
		keys[pk] = sk
	}
	return &keyring{
		keys:          keys,
		allowUnsigned: config.AllowUnsigned,
	}, nil
}

// Sign sets the id and signature of an event authored by a held key.
// For other authors only the id is set when unsigned events are allowed.
func (k *keyring) Sign(ctx context.Context, event *core.Event) error {
	_, span := tracer.Start(ctx, "Signer.Keyring.Sign")
	defer span.End()

	ev := event.ToNostr()

	sk, ok := k.keys[event.PubKey]
	if !ok {
		if !k.allowUnsigned || event.PubKey == "" {
			return core.NewErrorPermissionDenied()
		}
		event.ID = ev.GetID()
		event.Sig = ""
		return nil
	}

	err := ev.Sign(sk)
	if err != nil {
		span.RecordError(err)
		return errors.Wrap(err, "failed to sign event")
	}

	event.ID = ev.ID
	event.Sig = ev.Sig
	return nil
}
