package client

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/caio-sobreiro/dicomcore/dicom"
	"github.com/caio-sobreiro/dicomcore/dimse"
	dcmerr "github.com/caio-sobreiro/dicomcore/errors"
	"github.com/caio-sobreiro/dicomcore/interfaces"
	"github.com/caio-sobreiro/dicomcore/pdu"
	"github.com/caio-sobreiro/dicomcore/types"
)

// received is a request seen by the test SCP.
type received struct {
	msg  *types.Message
	meta interfaces.MessageContext
}

// testSCP serves associations on a loopback listener with the acceptor
// side of the pdu and dimse packages. respond builds the answer of every
// request; nil answers nothing.
type testSCP struct {
	acceptor *pdu.Acceptor
	respond  func(msg *types.Message, meta interfaces.MessageContext) (*types.Message, *dicom.Dataset)

	mu           sync.Mutex
	associations int
	requests     []received
}

func (s *testSCP) HandleDIMSE(ctx context.Context, msg *types.Message, data []byte, meta interfaces.MessageContext) (*types.Message, *dicom.Dataset, error) {
	s.mu.Lock()
	s.requests = append(s.requests, received{msg: msg, meta: meta})
	s.mu.Unlock()
	if s.respond == nil {
		return nil, nil, nil
	}
	rsp, ds := s.respond(msg, meta)
	return rsp, ds, nil
}

func (s *testSCP) start(t *testing.T) Parameters {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("cannot listen: %v", err)
	}
	t.Cleanup(func() { listener.Close() })

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			s.mu.Lock()
			s.associations++
			s.mu.Unlock()
			layer := pdu.NewLayer(conn, dimse.NewService(s, nil), "TEST_SCP", nil, s.acceptor)
			go layer.HandleConnection()
		}
	}()

	return Parameters{
		LocalAETitle: "TEST_SCU",
		Remote: RemoteModality{
			AETitle: "TEST_SCP",
			Host:    "127.0.0.1",
			Port:    listener.Addr().(*net.TCPAddr).Port,
		},
		Timeout: 5 * time.Second,
	}
}

func (s *testSCP) associationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.associations
}

func (s *testSCP) requestsSeen() []received {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]received(nil), s.requests...)
}

func answer(msg *types.Message, status uint16) *types.Message {
	return &types.Message{
		CommandField:              types.ResponseCommandFor(msg.CommandField),
		MessageIDBeingRespondedTo: msg.MessageID,
		AffectedSOPClassUID:       msg.AffectedSOPClassUID,
		AffectedSOPInstanceUID:    msg.AffectedSOPInstanceUID,
		Status:                    status,
	}
}

func TestEchoAgainstSCP(t *testing.T) {
	scp := &testSCP{
		acceptor: pdu.DefaultAcceptor(),
		respond: func(msg *types.Message, _ interfaces.MessageContext) (*types.Message, *dicom.Dataset) {
			return answer(msg, types.StatusSuccess), nil
		},
	}
	c := NewControlConnection(scp.start(t))

	for i := 0; i < 2; i++ {
		if err := c.Echo(t.Context()); err != nil {
			t.Fatalf("C-ECHO #%d failed: %v", i, err)
		}
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if n := scp.associationCount(); n != 1 {
		t.Errorf("opened %d associations, want 1", n)
	}
	requests := scp.requestsSeen()
	if len(requests) != 2 {
		t.Fatalf("SCP received %d requests, want 2", len(requests))
	}
	if requests[0].msg.MessageID != 1 || requests[1].msg.MessageID != 2 {
		t.Errorf("message IDs = %d, %d, want 1, 2", requests[0].msg.MessageID, requests[1].msg.MessageID)
	}
	if requests[0].meta.CallingAETitle != "TEST_SCU" {
		t.Errorf("calling AET = %q", requests[0].meta.CallingAETitle)
	}
}

func TestOpenNoPresentationContext(t *testing.T) {
	scp := &testSCP{acceptor: &pdu.Acceptor{
		AbstractSyntaxes: []string{types.VerificationSOPClass},
		TransferSyntaxes: types.UncompressedTransferSyntaxes(),
	}}
	params := scp.start(t)

	a := NewAssociation()
	a.ProposeGenericPresentationContext(types.StudyRootQueryRetrieveInformationModelFind)
	err := a.Open(t.Context(), params)
	if dcmerr.KindOf(err) != dcmerr.KindNoPresentationContext {
		t.Fatalf("Open = %v, want NoPresentationContext", err)
	}
	if a.IsOpen() {
		t.Error("association should be closed")
	}
}

func TestOpenRejected(t *testing.T) {
	acceptor := pdu.DefaultAcceptor()
	acceptor.CheckCalledAETitle = true
	scp := &testSCP{acceptor: acceptor}
	params := scp.start(t)
	params.Remote.AETitle = "SOMEONE_ELSE"

	c := NewControlConnection(params)
	err := c.Echo(t.Context())
	if dcmerr.KindOf(err) != dcmerr.KindNetworkProtocol {
		t.Fatalf("Echo = %v, want NetworkProtocol", err)
	}
	var assocErr *dcmerr.AssociationError
	if !errors.As(err, &assocErr) {
		t.Errorf("error %v does not carry the rejection", err)
	}
}

func TestOpenUnreachable(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("cannot listen: %v", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port
	listener.Close()

	params := testParameters()
	params.Remote.Host = "127.0.0.1"
	params.Remote.Port = port
	params.Timeout = time.Second

	err = NewControlConnection(params).Echo(t.Context())
	if dcmerr.KindOf(err) != dcmerr.KindNetworkProtocol {
		t.Fatalf("Echo = %v, want NetworkProtocol", err)
	}
}
