package conversation

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/parlato/pkg/store"
)

// StateKey is the well-known store key holding the serialized state snapshot.
const StateKey = "parlato-chat-state-v1"

// LoadState reads the last saved snapshot from the store. A missing key or a
// malformed payload both yield the empty state; malformed data never raises
// to the caller.
func LoadState(kv store.KV) *State {
	raw, ok, err := kv.Get(StateKey)
	if err != nil {
		log.Warn().Err(err).Msg("failed to read state snapshot, starting empty")
		return NewState()
	}
	if !ok {
		return NewState()
	}

	s := NewState()
	if err := json.Unmarshal([]byte(raw), s); err != nil {
		log.Warn().Err(err).Msg("malformed state snapshot, starting empty")
		return NewState()
	}
	if s.Workspaces == nil {
		s.Workspaces = []*Workspace{}
	}
	return s
}

// SaveState serializes the full snapshot and overwrites the prior one.
func SaveState(kv store.KV, s *State) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return kv.Set(StateKey, string(b))
}
