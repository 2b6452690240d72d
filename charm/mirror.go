// ABOUTME: Append-only snapshot mirror of saved contracts in Charm KV
// ABOUTME: Each save writes a ULID-keyed revision plus a latest pointer

package charm

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/google/uuid"
	"github.com/harperreed/grainbroker/models"
	"github.com/oklog/ulid/v2"
)

// ErrNoSnapshot is returned when a contract has never been mirrored.
var ErrNoSnapshot = errors.New("no snapshot for contract")

// Snapshot is one mirrored revision of a contract.
type Snapshot struct {
	Revision string          `json:"revision"`
	TakenAt  time.Time       `json:"taken_at"`
	Contract models.Contract `json:"contract"`
}

// Mirror records contract snapshots. It never deletes; soft-deleted
// contracts are mirrored like any other save.
type Mirror struct {
	client *Client

	mu      sync.Mutex
	entropy io.Reader
	now     func() time.Time
}

func NewMirror(c *Client) *Mirror {
	return &Mirror{
		client:  c,
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     time.Now,
	}
}

func contractPrefix(id uuid.UUID) string { return "contract/" + id.String() + "/" }

// Record stores a snapshot of c and returns its revision id.
func (m *Mirror) Record(ctx context.Context, c *models.Contract) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	now := m.now().UTC()
	rev, err := ulid.New(ulid.Timestamp(now), m.entropy)
	m.mu.Unlock()
	if err != nil {
		return "", fmt.Errorf("revision id: %w", err)
	}

	snap := Snapshot{Revision: rev.String(), TakenAt: now, Contract: *c}
	data, err := json.Marshal(snap)
	if err != nil {
		return "", err
	}

	prefix := contractPrefix(c.ID)
	err = m.client.SetMany(
		[2][]byte{[]byte(prefix + "rev/" + snap.Revision), data},
		[2][]byte{[]byte(prefix + "latest"), data},
	)
	if err != nil {
		return "", fmt.Errorf("mirror contract %s: %w", c.ID, err)
	}
	return snap.Revision, nil
}

// Latest returns the most recent snapshot of contract id.
func (m *Mirror) Latest(id uuid.UUID) (*Snapshot, error) {
	data, err := m.client.Get([]byte(contractPrefix(id) + "latest"))
	if errors.Is(err, badger.ErrKeyNotFound) || (err == nil && len(data) == 0) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

// History returns every snapshot of contract id, oldest first.
func (m *Mirror) History(id uuid.UUID) ([]Snapshot, error) {
	keys, err := m.client.KeysWithPrefix([]byte(contractPrefix(id) + "rev/"))
	if err != nil {
		return nil, err
	}
	sort.Slice(keys, func(i, j int) bool { return string(keys[i]) < string(keys[j]) })

	history := make([]Snapshot, 0, len(keys))
	for _, k := range keys {
		data, err := m.client.Get(k)
		if err != nil {
			return nil, err
		}
		var snap Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return nil, fmt.Errorf("decode %s: %w", k, err)
		}
		history = append(history, snap)
	}
	return history, nil
}

// Contracts lists the ids of every mirrored contract.
func (m *Mirror) Contracts() ([]uuid.UUID, error) {
	keys, err := m.client.KeysWithPrefix([]byte("contract/"))
	if err != nil {
		return nil, err
	}

	var ids []uuid.UUID
	for _, k := range keys {
		rest := strings.TrimPrefix(string(k), "contract/")
		idPart, tail, ok := strings.Cut(rest, "/")
		if !ok || tail != "latest" {
			continue
		}
		id, err := uuid.Parse(idPart)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
