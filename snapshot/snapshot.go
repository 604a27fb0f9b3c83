// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package snapshot exports and imports full ledger state.
//
// A snapshot file is a fixed header, a zstd-compressed canonical CBOR
// document of the whole state (balances and grants in ascending key
// order, then the singletons), and a 32-byte BLAKE3 trailer. The
// trailer is the state root: StateDigest computes the same value from
// a live store, so an operator can compare a file against a running
// daemon without importing it.
//
// The payload can optionally be age-encrypted to one or more X25519
// recipients. Encryption happens after compression; age output does
// not compress.
package snapshot

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"filippo.io/age"
	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"

	"github.com/fragwuerdig/cw20-taxed/ledger"
	"github.com/fragwuerdig/cw20-taxed/lib/addr"
	"github.com/fragwuerdig/cw20-taxed/lib/amount"
	"github.com/fragwuerdig/cw20-taxed/lib/codec"
	"github.com/fragwuerdig/cw20-taxed/tax"
	"github.com/fragwuerdig/cw20-taxed/token"
)

const (
	// snapshotVersion is the current file format version.
	snapshotVersion = 1

	// headerSize is the fixed header: 8-byte magic + 8-byte payload
	// length + 8-byte uncompressed document length.
	headerSize = 24

	// flagEncrypted marks an age-encrypted payload.
	flagEncrypted byte = 1 << 0
)

// snapshotMagic is the file signature: six ASCII bytes, the format
// version, and a flags byte filled in per file.
var snapshotMagic = [8]byte{'T', 'A', 'X', 'S', 'N', 'P', snapshotVersion, 0}

// stateDomainKey keys the BLAKE3 state hash. ASCII and zero-padded so
// the key is inspectable in hex dumps; domain separation keeps state
// roots from colliding with any other 32-byte hash in the system.
var stateDomainKey = [32]byte{
	'c', 'w', '2', '0', '.', 't', 'a', 'x', 'e', 'd', '.',
	's', 't', 'a', 't', 'e', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// zstdEncoder and zstdDecoder are reused across calls; both are safe
// for concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("snapshot: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("snapshot: zstd decoder initialization failed: " + err.Error())
	}
}

// Digest is the 32-byte BLAKE3 state root.
type Digest [32]byte

func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// document is the canonical CBOR form of the full state.
type document struct {
	Version   ledger.Version   `json:"version"`
	Info      token.Info       `json:"info"`
	Marketing *token.Marketing `json:"marketing,omitempty"`
	Logo      *token.Logo      `json:"logo,omitempty"`
	TaxMap    tax.Map          `json:"tax_map"`
	Balances  []balanceEntry   `json:"balances"`
	Grants    []grantEntry     `json:"grants"`
}

type balanceEntry struct {
	Account addr.Address  `json:"account"`
	Value   amount.Amount `json:"value"`
}

type grantEntry struct {
	Owner   addr.Address     `json:"owner"`
	Spender addr.Address     `json:"spender"`
	Amount  amount.Amount    `json:"amount"`
	Expires token.Expiration `json:"expires"`
}

// ExportOptions configures Export.
type ExportOptions struct {
	// Recipients are age X25519 public keys (age1...). Empty means
	// the payload is written in the clear.
	Recipients []string
}

// ImportOptions configures Import.
type ImportOptions struct {
	// Identities are age X25519 private keys (AGE-SECRET-KEY-1...)
	// tried against an encrypted payload. Ignored for plaintext
	// snapshots.
	Identities []string
}

// StateDigest computes the state root of a live store. It equals the
// digest Export writes for the same state.
func StateDigest(store ledger.Store) (Digest, error) {
	doc, err := collect(store)
	if err != nil {
		return Digest{}, err
	}
	encoded, err := codec.Marshal(doc)
	if err != nil {
		return Digest{}, fmt.Errorf("snapshot: encoding state: %w", err)
	}
	return hashState(encoded), nil
}

// Export writes the store's full state to w and returns its digest.
func Export(w io.Writer, store ledger.Store, opts ExportOptions) (Digest, error) {
	doc, err := collect(store)
	if err != nil {
		return Digest{}, err
	}
	encoded, err := codec.Marshal(doc)
	if err != nil {
		return Digest{}, fmt.Errorf("snapshot: encoding state: %w", err)
	}
	digest := hashState(encoded)

	payload := zstdEncoder.EncodeAll(encoded, nil)
	var flags byte
	if len(opts.Recipients) > 0 {
		if payload, err = encryptPayload(payload, opts.Recipients); err != nil {
			return Digest{}, err
		}
		flags |= flagEncrypted
	}

	header := make([]byte, headerSize)
	copy(header, snapshotMagic[:])
	header[7] = flags
	binary.LittleEndian.PutUint64(header[8:], uint64(len(payload)))
	binary.LittleEndian.PutUint64(header[16:], uint64(len(encoded)))

	for _, part := range [][]byte{header, payload, digest[:]} {
		if _, err := w.Write(part); err != nil {
			return Digest{}, fmt.Errorf("snapshot: writing: %w", err)
		}
	}
	return digest, nil
}

// Import reads a snapshot from r, verifies its digest, and applies it
// to an empty store. The stored version record is the snapshot's own,
// so importing old state and then migrating behaves exactly like
// migrating in place. The caller provides the transaction boundary.
func Import(r io.Reader, store ledger.Store, opts ImportOptions) (Digest, error) {
	header := make([]byte, headerSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return Digest{}, fmt.Errorf("snapshot: reading header: %w", err)
	}
	if !bytes.Equal(header[:6], snapshotMagic[:6]) {
		return Digest{}, fmt.Errorf("snapshot: not a ledger snapshot (invalid magic bytes)")
	}
	if header[6] != snapshotVersion {
		return Digest{}, fmt.Errorf("snapshot: format version %d is not supported (expected %d)", header[6], snapshotVersion)
	}
	flags := header[7]
	payloadLen := binary.LittleEndian.Uint64(header[8:])
	encodedLen := binary.LittleEndian.Uint64(header[16:])

	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Digest{}, fmt.Errorf("snapshot: reading payload: %w", err)
	}
	var trailer Digest
	if _, err := io.ReadFull(r, trailer[:]); err != nil {
		return Digest{}, fmt.Errorf("snapshot: reading digest trailer: %w", err)
	}

	if flags&flagEncrypted != 0 {
		var err error
		if payload, err = decryptPayload(payload, opts.Identities); err != nil {
			return Digest{}, err
		}
	}

	encoded, err := zstdDecoder.DecodeAll(payload, make([]byte, 0, encodedLen))
	if err != nil {
		return Digest{}, fmt.Errorf("snapshot: decompressing: %w", err)
	}
	if uint64(len(encoded)) != encodedLen {
		return Digest{}, fmt.Errorf("snapshot: decompressed to %d bytes, header says %d", len(encoded), encodedLen)
	}
	if got := hashState(encoded); got != trailer {
		return Digest{}, fmt.Errorf("snapshot: digest mismatch: file carries %s, payload hashes to %s", trailer, got)
	}

	var doc document
	if err := codec.Unmarshal(encoded, &doc); err != nil {
		return Digest{}, fmt.Errorf("snapshot: decoding state: %w", err)
	}
	if err := apply(store, &doc); err != nil {
		return Digest{}, err
	}
	return trailer, nil
}

// WriteFile exports to a temporary file in the target directory and
// renames it into place, so a crash mid-write never leaves a partial
// snapshot under the final name.
func WriteFile(path string, store ledger.Store, opts ExportOptions) (Digest, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".snapshot-*")
	if err != nil {
		return Digest{}, fmt.Errorf("snapshot: creating temporary file: %w", err)
	}
	digest, err := Export(tmp, store, opts)
	if err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return Digest{}, err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return Digest{}, fmt.Errorf("snapshot: syncing %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return Digest{}, fmt.Errorf("snapshot: closing %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return Digest{}, fmt.Errorf("snapshot: renaming into place: %w", err)
	}
	return digest, nil
}

// ReadFile imports a snapshot file into an empty store.
func ReadFile(path string, store ledger.Store, opts ImportOptions) (Digest, error) {
	f, err := os.Open(path)
	if err != nil {
		return Digest{}, fmt.Errorf("snapshot: opening %s: %w", path, err)
	}
	defer f.Close()
	return Import(f, store, opts)
}

// collect reads the full state into a document. Balances and grants
// come back in ascending key order from the store, which is what makes
// the encoding canonical.
func collect(store ledger.Store) (*document, error) {
	version, ok, err := store.Version()
	if err != nil {
		return nil, fmt.Errorf("snapshot: reading version: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("snapshot: state carries no version record")
	}
	info, ok, err := store.TokenInfo()
	if err != nil {
		return nil, fmt.Errorf("snapshot: reading token metadata: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("snapshot: state is not initialized")
	}
	taxMap, ok, err := store.TaxMap()
	if err != nil {
		return nil, fmt.Errorf("snapshot: reading tax map: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("snapshot: state has no tax map")
	}

	doc := &document{Version: version, Info: info, TaxMap: taxMap}

	if marketing, ok, err := store.Marketing(); err != nil {
		return nil, fmt.Errorf("snapshot: reading marketing: %w", err)
	} else if ok {
		doc.Marketing = &marketing
	}
	if logo, ok, err := store.Logo(); err != nil {
		return nil, fmt.Errorf("snapshot: reading logo: %w", err)
	} else if ok {
		doc.Logo = &logo
	}

	accounts, err := store.Accounts(addr.Address{}, 0)
	if err != nil {
		return nil, fmt.Errorf("snapshot: listing accounts: %w", err)
	}
	doc.Balances = make([]balanceEntry, 0, len(accounts))
	for _, account := range accounts {
		value, err := store.Balance(account)
		if err != nil {
			return nil, fmt.Errorf("snapshot: reading balance of %s: %w", account, err)
		}
		doc.Balances = append(doc.Balances, balanceEntry{Account: account, Value: value})
	}

	grants, err := store.Grants()
	if err != nil {
		return nil, fmt.Errorf("snapshot: reading grants: %w", err)
	}
	doc.Grants = make([]grantEntry, 0, len(grants))
	for _, g := range grants {
		doc.Grants = append(doc.Grants, grantEntry{
			Owner:   g.Owner,
			Spender: g.Spender,
			Amount:  g.Amount,
			Expires: g.Expires,
		})
	}
	return doc, nil
}

// apply writes a decoded document into an empty store.
func apply(store ledger.Store, doc *document) error {
	if _, ok, err := store.TokenInfo(); err != nil {
		return fmt.Errorf("snapshot: reading token metadata: %w", err)
	} else if ok {
		return fmt.Errorf("snapshot: state is already initialized")
	}

	if err := store.SetVersion(doc.Version); err != nil {
		return fmt.Errorf("snapshot: writing version: %w", err)
	}
	for _, b := range doc.Balances {
		if err := store.SetBalance(b.Account, b.Value); err != nil {
			return fmt.Errorf("snapshot: writing balance of %s: %w", b.Account, err)
		}
	}
	for _, g := range doc.Grants {
		grant := ledger.Allowance{Amount: g.Amount, Expires: g.Expires}
		if err := store.SetAllowance(g.Owner, g.Spender, grant); err != nil {
			return fmt.Errorf("snapshot: writing grant %s to %s: %w", g.Owner, g.Spender, err)
		}
	}
	if err := store.SetTokenInfo(doc.Info); err != nil {
		return fmt.Errorf("snapshot: writing token metadata: %w", err)
	}
	if doc.Marketing != nil {
		if err := store.SetMarketing(*doc.Marketing); err != nil {
			return fmt.Errorf("snapshot: writing marketing: %w", err)
		}
	}
	if doc.Logo != nil {
		if err := store.SetLogo(*doc.Logo); err != nil {
			return fmt.Errorf("snapshot: writing logo: %w", err)
		}
	}
	if err := store.SetTaxMap(doc.TaxMap); err != nil {
		return fmt.Errorf("snapshot: writing tax map: %w", err)
	}
	return nil
}

func hashState(encoded []byte) Digest {
	hasher, err := blake3.NewKeyed(stateDomainKey[:])
	if err != nil {
		panic("snapshot: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(encoded)
	var digest Digest
	copy(digest[:], hasher.Sum(nil))
	return digest
}

func encryptPayload(payload []byte, recipientKeys []string) ([]byte, error) {
	recipients := make([]age.Recipient, 0, len(recipientKeys))
	for _, key := range recipientKeys {
		recipient, err := age.ParseX25519Recipient(key)
		if err != nil {
			return nil, fmt.Errorf("snapshot: parsing recipient key %q: %w", key, err)
		}
		recipients = append(recipients, recipient)
	}

	var sealed bytes.Buffer
	writer, err := age.Encrypt(&sealed, recipients...)
	if err != nil {
		return nil, fmt.Errorf("snapshot: encrypting: %w", err)
	}
	if _, err := writer.Write(payload); err != nil {
		return nil, fmt.Errorf("snapshot: encrypting: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("snapshot: encrypting: %w", err)
	}
	return sealed.Bytes(), nil
}

func decryptPayload(payload []byte, identityKeys []string) ([]byte, error) {
	if len(identityKeys) == 0 {
		return nil, fmt.Errorf("snapshot: payload is encrypted and no identities were given")
	}
	identities := make([]age.Identity, 0, len(identityKeys))
	for _, key := range identityKeys {
		// The key is a secret; errors must not echo it.
		identity, err := age.ParseX25519Identity(key)
		if err != nil {
			return nil, fmt.Errorf("snapshot: parsing identity: %w", err)
		}
		identities = append(identities, identity)
	}

	reader, err := age.Decrypt(bytes.NewReader(payload), identities...)
	if err != nil {
		return nil, fmt.Errorf("snapshot: decrypting: %w", err)
	}
	plain, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("snapshot: decrypting: %w", err)
	}
	return plain, nil
}
