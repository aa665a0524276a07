// Package config loads the dicomcore configuration: a YAML file, then
// DICOMCORE_* environment variables, then secret resolution and
// validation.
package config

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/caio-sobreiro/dicomcore/cache"
	"github.com/caio-sobreiro/dicomcore/client"
	"github.com/caio-sobreiro/dicomcore/dicom"
	dcmerr "github.com/caio-sobreiro/dicomcore/errors"
	"github.com/caio-sobreiro/dicomcore/index"
	"github.com/caio-sobreiro/dicomcore/pdu"
	"github.com/caio-sobreiro/dicomcore/storage"
	"github.com/caio-sobreiro/dicomcore/types"
)

// EnvPrefix prefixes the environment variables overriding the file.
const EnvPrefix = "DICOMCORE_"

// DICOM configures the local application entity.
type DICOM struct {
	AETitle string `yaml:"aet"`
	Port    int    `yaml:"port"`
	// Timeout in seconds; 0 means none.
	Timeout                  int      `yaml:"timeout"`
	DefaultEncoding          string   `yaml:"default_encoding"`
	LossyQuality             int      `yaml:"lossy_quality"`
	ProposeCommonClasses     bool     `yaml:"propose_common_classes"`
	PreferredTransferSyntax  string   `yaml:"preferred_transfer_syntax"`
	MaxPDU                   uint32   `yaml:"max_pdu"`
	AcceptedTransferSyntaxes []string `yaml:"accepted_transfer_syntaxes"`
	CheckCalledAETitle       bool     `yaml:"check_called_aet"`
	// Threads bounds the associations served at once.
	Threads int `yaml:"threads"`
}

// Modality is a known remote DICOM node.
type Modality struct {
	AETitle      string `yaml:"aet"`
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	Manufacturer string `yaml:"manufacturer"`
	UseDicomTLS  bool   `yaml:"use_dicom_tls"`
}

// Storage configures the storage area.
type Storage struct {
	Backend     string `yaml:"backend"`
	Root        string `yaml:"root"`
	Bucket      string `yaml:"bucket"`
	Prefix      string `yaml:"prefix"`
	Credentials string `yaml:"credentials"`
}

// Index configures the resource index.
type Index struct {
	Backend    string `yaml:"backend"`
	Project    string `yaml:"project"`
	Collection string `yaml:"collection"`
}

// Cache configures the parsed-instance cache.
type Cache struct {
	MaxBytes int64 `yaml:"max_bytes"`
}

// Log configures the process logger.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is the whole configuration.
type Config struct {
	DICOM      DICOM               `yaml:"dicom"`
	Modalities map[string]Modality `yaml:"modalities"`
	Storage    Storage             `yaml:"storage"`
	Index      Index               `yaml:"index"`
	Cache      Cache               `yaml:"cache"`
	Log        Log                 `yaml:"log"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		DICOM: DICOM{
			AETitle:                 "DICOMCORE",
			Port:                    4242,
			Timeout:                 10,
			DefaultEncoding:         dicom.EncodingLatin1.String(),
			LossyQuality:            90,
			ProposeCommonClasses:    true,
			PreferredTransferSyntax: types.ExplicitVRLittleEndian,
			MaxPDU:                  types.DefaultMaxPDULength,
			Threads:                 4,
		},
		Modalities: map[string]Modality{},
		Storage:    Storage{Backend: storage.BackendFilesystem, Root: "dicomcore-storage"},
		Index:      Index{Backend: index.BackendMemory, Collection: index.DefaultCollection},
		Cache:      Cache{MaxBytes: cache.DefaultMaxBytes},
		Log:        Log{Level: "info", Format: "text"},
	}
}

// Options tune Load.
type Options struct {
	// Secrets resolves secret:// values. Nil uses Google Secret Manager,
	// contacted only when such a value is present.
	Secrets SecretAccessor
	// Getenv replaces os.Getenv, mainly for tests.
	Getenv func(string) string
}

// Load reads path, which may be empty, over the defaults.
func Load(ctx context.Context, path string, opts Options) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read configuration %s: %w", path, err)
		}
		if err := Parse(data, cfg); err != nil {
			return nil, fmt.Errorf("configuration %s: %w", path, err)
		}
	}

	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	if err := cfg.applyEnv(getenv); err != nil {
		return nil, err
	}
	if err := cfg.resolveSecrets(ctx, opts.Secrets); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML into cfg. Unknown keys are rejected.
func Parse(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return dcmerr.Wrap(dcmerr.KindBadParameterType, err, "invalid YAML")
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	str := func(name string, dst *string) {
		if v := getenv(EnvPrefix + name); v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *int) error {
		v := getenv(EnvPrefix + name)
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return dcmerr.New(dcmerr.KindBadParameterType, "%s%s is not an integer: %q", EnvPrefix, name, v)
		}
		*dst = n
		return nil
	}

	str("AET", &c.DICOM.AETitle)
	if err := num("PORT", &c.DICOM.Port); err != nil {
		return err
	}
	if err := num("TIMEOUT", &c.DICOM.Timeout); err != nil {
		return err
	}
	if err := num("THREADS", &c.DICOM.Threads); err != nil {
		return err
	}
	if err := num("LOSSY_QUALITY", &c.DICOM.LossyQuality); err != nil {
		return err
	}
	str("DEFAULT_ENCODING", &c.DICOM.DefaultEncoding)
	str("PREFERRED_TRANSFER_SYNTAX", &c.DICOM.PreferredTransferSyntax)
	str("STORAGE_BACKEND", &c.Storage.Backend)
	str("STORAGE_ROOT", &c.Storage.Root)
	str("STORAGE_BUCKET", &c.Storage.Bucket)
	str("STORAGE_PREFIX", &c.Storage.Prefix)
	str("STORAGE_CREDENTIALS", &c.Storage.Credentials)
	str("INDEX_BACKEND", &c.Index.Backend)
	str("INDEX_PROJECT", &c.Index.Project)
	str("INDEX_COLLECTION", &c.Index.Collection)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	if v := getenv(EnvPrefix + "CACHE_MAX_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return dcmerr.New(dcmerr.KindBadParameterType, "%sCACHE_MAX_BYTES is not an integer: %q", EnvPrefix, v)
		}
		c.Cache.MaxBytes = n
	}
	return nil
}

// Validate checks ranges and names.
func (c *Config) Validate() error {
	if err := checkAETitle(c.DICOM.AETitle); err != nil {
		return err
	}
	if c.DICOM.Port <= 0 || c.DICOM.Port > 65535 {
		return dcmerr.New(dcmerr.KindParameterOutOfRange, "invalid DICOM port %d", c.DICOM.Port)
	}
	if c.DICOM.Timeout < 0 {
		return dcmerr.New(dcmerr.KindParameterOutOfRange, "negative DICOM timeout")
	}
	if c.DICOM.Threads < 1 {
		return dcmerr.New(dcmerr.KindParameterOutOfRange, "at least one DICOM thread is needed, got %d", c.DICOM.Threads)
	}
	if c.DICOM.LossyQuality < 1 || c.DICOM.LossyQuality > 100 {
		return dcmerr.New(dcmerr.KindParameterOutOfRange, "lossy quality must be in 1..100, got %d", c.DICOM.LossyQuality)
	}
	if _, err := dicom.ParseEncodingName(c.DICOM.DefaultEncoding); err != nil {
		return err
	}
	if ts := c.DICOM.PreferredTransferSyntax; ts != "" && !knownSyntax(ts) {
		return dcmerr.New(dcmerr.KindParameterOutOfRange, "unknown preferred transfer syntax %s", ts)
	}
	for _, ts := range c.DICOM.AcceptedTransferSyntaxes {
		if !knownSyntax(ts) {
			return dcmerr.New(dcmerr.KindParameterOutOfRange, "unknown accepted transfer syntax %s", ts)
		}
	}
	if c.DICOM.MaxPDU != 0 && c.DICOM.MaxPDU < 4096 {
		return dcmerr.New(dcmerr.KindParameterOutOfRange, "max PDU length %d is below 4096", c.DICOM.MaxPDU)
	}
	for name, m := range c.Modalities {
		if err := checkAETitle(m.AETitle); err != nil {
			return fmt.Errorf("modality %s: %w", name, err)
		}
		if m.Host == "" || m.Port <= 0 || m.Port > 65535 {
			return dcmerr.New(dcmerr.KindParameterOutOfRange, "modality %s: invalid address %s:%d", name, m.Host, m.Port)
		}
		if _, err := client.ParseManufacturer(m.Manufacturer); err != nil {
			return dcmerr.Wrap(dcmerr.KindParameterOutOfRange, err, "modality %s", name)
		}
		if m.UseDicomTLS {
			return dcmerr.New(dcmerr.KindNotImplemented, "modality %s: DICOM TLS is not supported", name)
		}
	}
	if c.Cache.MaxBytes <= 0 {
		return dcmerr.New(dcmerr.KindParameterOutOfRange, "cache max_bytes must be positive")
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return dcmerr.New(dcmerr.KindParameterOutOfRange, "log format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

func checkAETitle(aet string) error {
	if aet == "" || len(aet) > 16 {
		return dcmerr.New(dcmerr.KindParameterOutOfRange, "AE title must have 1 to 16 characters: %q", aet)
	}
	for _, r := range aet {
		if r < 0x20 || r > 0x7E || r == '\\' {
			return dcmerr.New(dcmerr.KindParameterOutOfRange, "invalid character in AE title %q", aet)
		}
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, dcmerr.New(dcmerr.KindParameterOutOfRange, "invalid log level %q", s)
	}
	return level, nil
}

// Logger builds the process logger writing to w.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, _ := parseLevel(c.Log.Level)
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Environment returns the dicom environment with the configured default
// encoding.
func (c *Config) Environment() (*dicom.Environment, error) {
	enc, err := dicom.ParseEncodingName(c.DICOM.DefaultEncoding)
	if err != nil {
		return nil, err
	}
	env := dicom.NewEnvironment()
	env.DefaultEncoding = enc
	return env, nil
}

// Timeout is the DICOM timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.DICOM.Timeout) * time.Second
}

// ModalityNames returns the configured modality names, sorted.
func (c *Config) ModalityNames() []string {
	names := make([]string, 0, len(c.Modalities))
	for name := range c.Modalities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Remote returns the modality called name. A name that is not configured
// is also looked up as an AE title.
func (c *Config) Remote(name string) (client.RemoteModality, error) {
	m, ok := c.Modalities[name]
	if !ok {
		for _, candidate := range c.Modalities {
			if candidate.AETitle == name {
				m, ok = candidate, true
				break
			}
		}
	}
	if !ok {
		return client.RemoteModality{}, dcmerr.New(dcmerr.KindInexistentItem, "no modality named %q", name)
	}
	manufacturer, _ := client.ParseManufacturer(m.Manufacturer)
	return client.RemoteModality{AETitle: m.AETitle, Host: m.Host, Port: m.Port, Manufacturer: manufacturer}, nil
}

// Parameters returns the association parameters from the local AE to remote.
func (c *Config) Parameters(remote client.RemoteModality, logger *slog.Logger) client.Parameters {
	return client.Parameters{
		LocalAETitle: c.DICOM.AETitle,
		Remote:       remote,
		Timeout:      c.Timeout(),
		MaxPDULength: c.DICOM.MaxPDU,
		Logger:       logger,
	}
}

// Acceptor returns the presentation context policy of the SCP: the
// default one, extended with the query/retrieve models and the configured
// transfer syntaxes.
func (c *Config) Acceptor() *pdu.Acceptor {
	a := pdu.DefaultAcceptor()
	a.AbstractSyntaxes = append(a.AbstractSyntaxes,
		types.PatientRootQueryRetrieveInformationModelFind,
		types.PatientRootQueryRetrieveInformationModelMove,
		types.StudyRootQueryRetrieveInformationModelFind,
		types.StudyRootQueryRetrieveInformationModelMove,
	)
	if len(c.DICOM.AcceptedTransferSyntaxes) > 0 {
		a.StorageTransferSyntaxes = append([]string(nil), c.DICOM.AcceptedTransferSyntaxes...)
	}
	if c.DICOM.MaxPDU != 0 {
		a.MaxPDULength = c.DICOM.MaxPDU
	}
	a.CheckCalledAETitle = c.DICOM.CheckCalledAETitle
	return a
}

// StorageOptions returns the options of storage.Open.
func (c *Config) StorageOptions() storage.Options {
	return storage.Options{
		Backend:         c.Storage.Backend,
		Root:            c.Storage.Root,
		Bucket:          c.Storage.Bucket,
		Prefix:          c.Storage.Prefix,
		CredentialsFile: c.Storage.Credentials,
	}
}

// IndexOptions returns the options of index.Open.
func (c *Config) IndexOptions() index.Options {
	return index.Options{
		Backend:    c.Index.Backend,
		Project:    c.Index.Project,
		Collection: c.Index.Collection,
	}
}

func knownSyntax(uid string) bool {
	_, ok := types.LookupTransferSyntax(uid)
	return ok
}
