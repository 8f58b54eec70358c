// Package vfsconfig loads the engine's own library-level configuration
// -- where it keeps its data, the actor identity to fall back to before
// one is persisted, and the chunking threshold FileBodyRouter uses when
// deciding to stream a binary write through blobstore's mmap ingestion
// path -- through koanf rather than the teacher's ad hoc
// os.ReadFile-plus-json.Unmarshal global (internal/config/config.go).
// A library callers embed needs layered defaults/file/override loading,
// not a package-level var only a CLI main() ever touches.
package vfsconfig

import (
	"fmt"
	"os"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// Config is the engine's own configuration, independent of whatever
// config a hosting process layers on top.
type Config struct {
	// DataDir holds badger/, blobs/, root-doc-id, actor-id (spec.md §6).
	DataDir string `koanf:"data_dir"`
	// ActorID seeds the actor identity open_new persists to actor-id;
	// normally left empty so open_new mints a fresh UUID (spec.md §3's
	// Actor supplement).
	ActorID string `koanf:"actor_id"`
	// ChunkSizeMax is the byte threshold above which a binary write is
	// staged through a scratch file and read back via blobstore's mmap
	// path instead of being handed straight to blobstore.Set.
	ChunkSizeMax int `koanf:"chunk_size_max"`
}

// defaults mirrors the teacher's DefaultHash/DefaultBranch style of
// hardcoded fallback constants, just scoped to this config's fields.
var defaults = Config{
	DataDir:      ".vfsengine",
	ChunkSizeMax: 4 << 20, // 4 MiB
}

// Load builds a Config by layering, in order: built-in defaults, then
// (if path is non-empty) a JSON file at path, then overrides. Any layer
// left unset keeps the prior layer's value; a missing file at path is
// not an error, matching spec.md's "the engine does not require a
// config file to exist" stance implicit in open_new needing only a dir.
func Load(path string, overrides map[string]any) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(rawbytes.Provider(mustMarshalDefaults()), json.Parser()); err != nil {
		return Config{}, fmt.Errorf("load config defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), json.Parser()); err != nil {
				return Config{}, fmt.Errorf("load config file %q: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("stat config file %q: %w", path, err)
		}
	}

	if len(overrides) > 0 {
		if err := k.Load(confmap.Provider(overrides, "."), nil); err != nil {
			return Config{}, fmt.Errorf("load config overrides: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

// mustMarshalDefaults encodes the built-in defaults as the JSON bytes
// rawbytes.Provider expects; it never fails because the struct is
// static and json-safe.
func mustMarshalDefaults() []byte {
	return []byte(fmt.Sprintf(
		`{"data_dir":%q,"actor_id":%q,"chunk_size_max":%d}`,
		defaults.DataDir, defaults.ActorID, defaults.ChunkSizeMax,
	))
}
