package dicom

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// Environment bundles the process-wide state used by parsers and writers:
// the tag dictionary and the encoding assumed when SpecificCharacterSet is
// absent. Tests create isolated environments; everything else uses Default.
type Environment struct {
	Dictionary      *Dictionary
	DefaultEncoding Encoding
	Logger          *slog.Logger
}

// NewEnvironment returns an environment with the standard dictionary, the
// Philips private tags and Latin-1 as default encoding.
func NewEnvironment() *Environment {
	env := &Environment{
		Dictionary:      NewDictionary(),
		DefaultEncoding: EncodingLatin1,
	}
	registerBuiltinPrivateTags(env.Dictionary)
	return env
}

func (e *Environment) logger() *slog.Logger {
	if e != nil && e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

var (
	defaultEnv     atomic.Pointer[Environment]
	defaultEnvOnce sync.Once
)

// Default returns the process default environment.
func Default() *Environment {
	defaultEnvOnce.Do(func() {
		if defaultEnv.Load() == nil {
			defaultEnv.Store(NewEnvironment())
		}
	})
	return defaultEnv.Load()
}

// SetDefault replaces the process default environment. Call it once at startup.
func SetDefault(env *Environment) {
	defaultEnvOnce.Do(func() {})
	defaultEnv.Store(env)
}

func registerBuiltinPrivateTags(d *Dictionary) {
	builtin := []Entry{
		{Tag: Tag{0x07A1, 0x100A}, VR: VR_OW, Keyword: "ElscintCompressedPixelData", VMMin: 1, VMMax: 1, PrivateCreator: PhilipsPrivateCreator},
		{Tag: Tag{0x07A1, 0x1011}, VR: VR_CS, Keyword: "ElscintCompressionType", VMMin: 1, VMMax: 1, PrivateCreator: PhilipsPrivateCreator},
	}
	for _, e := range builtin {
		_ = d.Register(e)
	}
}
