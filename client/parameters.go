package client

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/caio-sobreiro/dicomcore/types"
)

// defaultACSETimeout bounds association negotiation when no timeout is set.
const defaultACSETimeout = 10 * time.Second

// Manufacturer tunes the query encoding to the quirks of a remote modality.
type Manufacturer int

const (
	ManufacturerGeneric Manufacturer = iota
	// ManufacturerGE wants "*" instead of an empty universal match.
	ManufacturerGE
	// ManufacturerGenericNoWildcardInDates rejects "*" in date attributes.
	ManufacturerGenericNoWildcardInDates
	// ManufacturerGenericNoUniversalWildcard rejects "*" everywhere.
	ManufacturerGenericNoUniversalWildcard
)

var manufacturerNames = map[Manufacturer]string{
	ManufacturerGeneric:                    "Generic",
	ManufacturerGE:                         "GE",
	ManufacturerGenericNoWildcardInDates:   "GenericNoWildcardInDates",
	ManufacturerGenericNoUniversalWildcard: "GenericNoUniversalWildcard",
}

func (m Manufacturer) String() string {
	if name, ok := manufacturerNames[m]; ok {
		return name
	}
	return "Unknown"
}

// ParseManufacturer accepts the names printed by String, case-insensitively.
// An empty name is Generic.
func ParseManufacturer(s string) (Manufacturer, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ManufacturerGeneric, nil
	}
	for m, name := range manufacturerNames {
		if strings.EqualFold(name, s) {
			return m, nil
		}
	}
	return ManufacturerGeneric, fmt.Errorf("unknown manufacturer: %s", s)
}

// RemoteModality identifies a remote DICOM node.
type RemoteModality struct {
	AETitle      string
	Host         string
	Port         int
	Manufacturer Manufacturer
}

// Address is the host:port of the modality.
func (m RemoteModality) Address() string {
	return net.JoinHostPort(m.Host, strconv.Itoa(m.Port))
}

// DialFunc opens the transport of an association.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// Parameters describe an association from the local AET to a remote modality.
type Parameters struct {
	LocalAETitle string
	Remote       RemoteModality

	// Timeout applies to negotiation and to every DIMSE exchange. Zero
	// blocks indefinitely.
	Timeout time.Duration

	// MaxPDULength announced to the remote (default: 16KB).
	MaxPDULength uint32

	Logger *slog.Logger

	// Dial replaces the TCP dialer, mainly for tests.
	Dial DialFunc
}

// HasTimeout reports whether DIMSE exchanges are bounded.
func (p Parameters) HasTimeout() bool {
	return p.Timeout > 0
}

func (p Parameters) acseTimeout() time.Duration {
	if p.Timeout > 0 {
		return p.Timeout
	}
	return defaultACSETimeout
}

func (p Parameters) maxPDULength() uint32 {
	if p.MaxPDULength == 0 {
		return types.DefaultMaxPDULength
	}
	return p.MaxPDULength
}

func (p Parameters) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.Default()
	}
	return p.Logger
}

// sameEndpoint reports whether an open association made with p can serve q.
func (p Parameters) sameEndpoint(q Parameters) bool {
	return p.LocalAETitle == q.LocalAETitle && p.Remote == q.Remote &&
		p.Timeout == q.Timeout && p.MaxPDULength == q.MaxPDULength
}

func (p Parameters) dial(ctx context.Context) (net.Conn, error) {
	if p.Dial != nil {
		return p.Dial(ctx, "tcp", p.Remote.Address())
	}
	// Without a timeout the connect itself blocks.
	dialer := &net.Dialer{Timeout: p.Timeout}
	return dialer.DialContext(ctx, "tcp", p.Remote.Address())
}
