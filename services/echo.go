// Package services provides the DICOM SCP services of dicomcore: C-ECHO,
// C-STORE into a storage area and resource index, and the storage
// commitment push model.
package services

import (
	"context"
	"log/slog"

	"github.com/caio-sobreiro/dicomcore/dicom"
	"github.com/caio-sobreiro/dicomcore/interfaces"
	"github.com/caio-sobreiro/dicomcore/types"
)

// EchoService handles C-ECHO verification requests.
//
// C-ECHO is the DICOM equivalent of a "ping": it carries no dataset and
// only tells the calling AE that this one is operational.
type EchoService struct {
	logger *slog.Logger
}

// NewEchoService creates a new C-ECHO service instance. A nil logger uses
// slog.Default().
func NewEchoService(logger *slog.Logger) *EchoService {
	if logger == nil {
		logger = slog.Default()
	}
	return &EchoService{logger: logger}
}

// HandleDIMSE answers a C-ECHO-RQ with a success C-ECHO-RSP.
func (s *EchoService) HandleDIMSE(ctx context.Context, msg *types.Message, data []byte, meta interfaces.MessageContext) (*types.Message, *dicom.Dataset, error) {
	s.logger.DebugContext(ctx, "Processing C-ECHO request",
		"message_id", msg.MessageID,
		"calling_aet", meta.CallingAETitle)

	response := NewCEchoResponse(msg, types.StatusSuccess)

	s.logger.InfoContext(ctx, "C-ECHO request successful",
		"message_id", msg.MessageID,
		"calling_aet", meta.CallingAETitle)

	return response, nil, nil
}
