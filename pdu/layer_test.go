package pdu

import (
	"context"
	"encoding/binary"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/caio-sobreiro/dicomcore/dicom"
	"github.com/caio-sobreiro/dicomcore/dimse"
	dcmerr "github.com/caio-sobreiro/dicomcore/errors"
	"github.com/caio-sobreiro/dicomcore/interfaces"
	"github.com/caio-sobreiro/dicomcore/types"
)

// MockConn is a mock implementation of net.Conn for testing
type MockConn struct {
	net.Conn
	RemoteAddrFunc func() net.Addr
	CloseFunc      func() error
}

func (m *MockConn) RemoteAddr() net.Addr {
	if m.RemoteAddrFunc != nil {
		return m.RemoteAddrFunc()
	}
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 11112}
}

func (m *MockConn) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// MockDIMSEHandler is a mock implementation of DIMSEHandler for testing
type MockDIMSEHandler struct {
	HandleDIMSEMessageFunc func(presContextID byte, msgCtrlHeader byte, data []byte, pduLayer interfaces.PDULayer) error
}

func (m *MockDIMSEHandler) HandleDIMSEMessage(presContextID byte, msgCtrlHeader byte, data []byte, pduLayer interfaces.PDULayer) error {
	if m.HandleDIMSEMessageFunc != nil {
		return m.HandleDIMSEMessageFunc(presContextID, msgCtrlHeader, data, pduLayer)
	}
	return nil
}

// echoHandler answers every request with a success response.
type echoHandler struct{}

func (echoHandler) HandleDIMSE(ctx context.Context, msg *types.Message, data []byte, meta interfaces.MessageContext) (*types.Message, *dicom.Dataset, error) {
	return &types.Message{
		CommandField:              types.ResponseCommandFor(msg.CommandField),
		MessageIDBeingRespondedTo: msg.MessageID,
		AffectedSOPClassUID:       msg.AffectedSOPClassUID,
		CommandDataSetType:        types.CommandDataSetTypeNone,
		Status:                    types.StatusSuccess,
	}, nil, nil
}

func TestNewLayer(t *testing.T) {
	mockConn := &MockConn{}
	mockHandler := &MockDIMSEHandler{}
	aeTitle := "TEST_AE"

	layer := NewLayer(mockConn, mockHandler, aeTitle, nil, nil)

	if layer == nil {
		t.Fatal("Expected non-nil layer")
	}
	if layer.conn != mockConn {
		t.Error("Layer conn not set correctly")
	}
	if layer.dimseHandler != mockHandler {
		t.Error("Layer dimseHandler not set correctly")
	}
	if layer.serverAETitle != aeTitle {
		t.Errorf("Layer serverAETitle = %s, want %s", layer.serverAETitle, aeTitle)
	}
	if layer.acceptor == nil || !layer.acceptor.AcceptStorage {
		t.Error("Layer should default to an acceptor that serves storage")
	}
	if layer.RemoteAddr() != "127.0.0.1:11112" {
		t.Errorf("RemoteAddr() = %s", layer.RemoteAddr())
	}
}


func TestAcceptor_Negotiate(t *testing.T) {
	acceptor := DefaultAcceptor()

	tests := []struct {
		name       string
		proposed   ProposedContext
		wantResult byte
		wantTS     string
	}{
		{
			name:       "Verification with implicit VR",
			proposed:   ProposedContext{ID: 1, AbstractSyntax: types.VerificationSOPClass, TransferSyntaxes: []string{types.ImplicitVRLittleEndian}},
			wantResult: types.ResultAcceptance,
			wantTS:     types.ImplicitVRLittleEndian,
		},
		{
			name:       "First supported proposal wins",
			proposed:   ProposedContext{ID: 3, AbstractSyntax: types.CTImageStorage, TransferSyntaxes: []string{"1.2.3.4", types.ExplicitVRLittleEndian, types.ImplicitVRLittleEndian}},
			wantResult: types.ResultAcceptance,
			wantTS:     types.ExplicitVRLittleEndian,
		},
		{
			name:       "Compressed syntax accepted for storage",
			proposed:   ProposedContext{ID: 5, AbstractSyntax: types.CTImageStorage, TransferSyntaxes: []string{types.JPEGLosslessSV1}},
			wantResult: types.ResultAcceptance,
			wantTS:     types.JPEGLosslessSV1,
		},
		{
			name:       "Compressed syntax refused for verification",
			proposed:   ProposedContext{ID: 7, AbstractSyntax: types.VerificationSOPClass, TransferSyntaxes: []string{types.JPEGLosslessSV1}},
			wantResult: types.ResultTransferSyntaxesNotSupported,
		},
		{
			name:       "Unknown abstract syntax",
			proposed:   ProposedContext{ID: 9, AbstractSyntax: "1.2.3.4.5", TransferSyntaxes: []string{types.ImplicitVRLittleEndian}},
			wantResult: types.ResultAbstractSyntaxNotSupported,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := acceptor.negotiate(tt.proposed)
			if got.ID != tt.proposed.ID {
				t.Errorf("ID = %d, want %d", got.ID, tt.proposed.ID)
			}
			if got.Result != tt.wantResult {
				t.Errorf("Result = %d, want %d", got.Result, tt.wantResult)
			}
			if got.TransferSyntax != tt.wantTS {
				t.Errorf("TransferSyntax = %q, want %q", got.TransferSyntax, tt.wantTS)
			}
		})
	}
}

func TestAssociateRQ_RoundTrip(t *testing.T) {
	rq := &AssociateRQ{
		CalledAETitle:  "ORTHANC",
		CallingAETitle: "STORESCU",
		PresentationContexts: []ProposedContext{
			{ID: 1, AbstractSyntax: types.CTImageStorage, TransferSyntaxes: []string{types.ExplicitVRLittleEndian, types.ImplicitVRLittleEndian}},
			{ID: 3, AbstractSyntax: types.StorageCommitmentPushModelSOPClass, TransferSyntaxes: []string{types.ImplicitVRLittleEndian}, Role: types.RoleSCP},
		},
		UserInfo: UserInformation{
			MaxPDULength: 32768,
			Roles:        map[string]types.Role{types.StorageCommitmentPushModelSOPClass: types.RoleSCP},
		},
	}

	decoded, err := DecodeAssociateRQ(rq.Encode())
	if err != nil {
		t.Fatalf("DecodeAssociateRQ() error = %v", err)
	}

	if decoded.CalledAETitle != "ORTHANC" || decoded.CallingAETitle != "STORESCU" {
		t.Errorf("AE titles = %q/%q", decoded.CalledAETitle, decoded.CallingAETitle)
	}
	if decoded.ApplicationContext != types.ApplicationContextName {
		t.Errorf("ApplicationContext = %q", decoded.ApplicationContext)
	}
	if decoded.UserInfo.MaxPDULength != 32768 {
		t.Errorf("MaxPDULength = %d, want 32768", decoded.UserInfo.MaxPDULength)
	}
	if decoded.UserInfo.ImplementationClassUID != types.ImplementationClassUID {
		t.Errorf("ImplementationClassUID = %q", decoded.UserInfo.ImplementationClassUID)
	}
	if decoded.UserInfo.ImplementationVersionName != types.ImplementationVersionName {
		t.Errorf("ImplementationVersionName = %q", decoded.UserInfo.ImplementationVersionName)
	}
	if len(decoded.PresentationContexts) != 2 {
		t.Fatalf("got %d presentation contexts, want 2", len(decoded.PresentationContexts))
	}

	first := decoded.PresentationContexts[0]
	if first.ID != 1 || first.AbstractSyntax != types.CTImageStorage || len(first.TransferSyntaxes) != 2 {
		t.Errorf("first context = %+v", first)
	}
	if first.Role != types.RoleDefault {
		t.Errorf("first context role = %s, want default", first.Role)
	}
	if second := decoded.PresentationContexts[1]; second.Role != types.RoleSCP {
		t.Errorf("second context role = %s, want SCP", second.Role)
	}
}

func TestAssociateAC_RoundTrip(t *testing.T) {
	ac := &AssociateAC{
		CalledAETitle:  "ORTHANC",
		CallingAETitle: "STORESCU",
		PresentationContexts: []types.PresentationContext{
			{ID: 1, Result: types.ResultAcceptance, TransferSyntax: types.ImplicitVRLittleEndian},
			{ID: 3, Result: types.ResultAbstractSyntaxNotSupported},
		},
		UserInfo: UserInformation{MaxPDULength: 16384},
	}

	decoded, err := DecodeAssociateAC(ac.Encode())
	if err != nil {
		t.Fatalf("DecodeAssociateAC() error = %v", err)
	}
	if len(decoded.PresentationContexts) != 2 {
		t.Fatalf("got %d presentation contexts, want 2", len(decoded.PresentationContexts))
	}
	if pc := decoded.PresentationContexts[0]; !pc.Accepted() || pc.TransferSyntax != types.ImplicitVRLittleEndian {
		t.Errorf("first context = %+v", pc)
	}
	if pc := decoded.PresentationContexts[1]; pc.Accepted() || pc.TransferSyntax != "" {
		t.Errorf("second context = %+v", pc)
	}
	if decoded.UserInfo.MaxPDULength != 16384 {
		t.Errorf("MaxPDULength = %d", decoded.UserInfo.MaxPDULength)
	}
}

func TestDecodeAssociate_Errors(t *testing.T) {
	valid := (&AssociateRQ{
		CalledAETitle:  "A",
		CallingAETitle: "B",
		PresentationContexts: []ProposedContext{
			{ID: 1, AbstractSyntax: types.VerificationSOPClass, TransferSyntaxes: []string{types.ImplicitVRLittleEndian}},
		},
	}).Encode()

	tests := []struct {
		name string
		data []byte
	}{
		{"Too short", make([]byte, 40)},
		{"Truncated item", valid[:len(valid)-3]},
		{"Item length overflow", append(append([]byte(nil), valid[:68]...), 0x10, 0x00, 0x00, 0xFF, '1')},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeAssociateRQ(tt.data); err == nil {
				t.Error("Expected error but got none")
			}
		})
	}

	if _, err := DecodeAssociateRJ([]byte{0x00}); err == nil {
		t.Error("Expected error for short A-ASSOCIATE-RJ")
	}
}

func TestAssociateRJ_Err(t *testing.T) {
	rj, err := DecodeAssociateRJ((&AssociateRJ{
		Result: RejectPermanent,
		Source: dcmerr.RejectSourceServiceUser,
		Reason: dcmerr.RejectReasonCalledAETitleNotRecognized,
	}).Encode())
	if err != nil {
		t.Fatalf("DecodeAssociateRJ() error = %v", err)
	}

	assocErr := rj.Err()
	if assocErr.Reason != dcmerr.RejectReasonCalledAETitleNotRecognized {
		t.Errorf("Reason = %s", assocErr.Reason)
	}
	if assocErr.Source != dcmerr.RejectSourceServiceUser {
		t.Errorf("Source = %s", assocErr.Source)
	}
}

// startLayer serves one association over net.Pipe and returns the
// requestor end together with the result of HandleConnection.
func startLayer(t *testing.T, handler DIMSEHandler, acceptor *Acceptor) (net.Conn, <-chan error) {
	t.Helper()
	server, client := net.Pipe()
	layer := NewLayer(server, handler, "DICOMCORE", nil, acceptor)

	done := make(chan error, 1)
	go func() { done <- layer.HandleConnection() }()
	t.Cleanup(func() { client.Close() })
	return client, done
}

func associate(t *testing.T, conn net.Conn, rq *AssociateRQ) *PDU {
	t.Helper()
	if err := WritePDU(conn, TypeAssociateRQ, rq.Encode()); err != nil {
		t.Fatalf("WritePDU() error = %v", err)
	}
	reply, err := ReadPDU(conn)
	if err != nil {
		t.Fatalf("ReadPDU() error = %v", err)
	}
	return reply
}

func waitDone(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("HandleConnection did not return")
		return nil
	}
}

func TestLayer_EchoAndRelease(t *testing.T) {
	conn, done := startLayer(t, dimse.NewService(echoHandler{}, nil), nil)

	reply := associate(t, conn, &AssociateRQ{
		CalledAETitle:  "DICOMCORE",
		CallingAETitle: "ECHOSCU",
		PresentationContexts: []ProposedContext{
			{ID: 1, AbstractSyntax: "1.2.3.4.5", TransferSyntaxes: []string{types.ImplicitVRLittleEndian}},
			{ID: 3, AbstractSyntax: types.VerificationSOPClass, TransferSyntaxes: []string{types.ImplicitVRLittleEndian}},
			{ID: 5, AbstractSyntax: types.StorageCommitmentPushModelSOPClass, TransferSyntaxes: []string{types.ImplicitVRLittleEndian}, Role: types.RoleSCP},
		},
		UserInfo: UserInformation{
			MaxPDULength: 16384,
			Roles:        map[string]types.Role{types.StorageCommitmentPushModelSOPClass: types.RoleSCP},
		},
	})
	if reply.Type != TypeAssociateAC {
		t.Fatalf("reply type = 0x%02x, want A-ASSOCIATE-AC", reply.Type)
	}

	ac, err := DecodeAssociateAC(reply.Data)
	if err != nil {
		t.Fatalf("DecodeAssociateAC() error = %v", err)
	}
	if len(ac.PresentationContexts) != 2 {
		t.Fatalf("got %d contexts in A-ASSOCIATE-AC, want the 2 accepted ones", len(ac.PresentationContexts))
	}
	if ac.PresentationContexts[0].ID != 3 || ac.PresentationContexts[1].ID != 5 {
		t.Errorf("accepted context IDs = %d, %d", ac.PresentationContexts[0].ID, ac.PresentationContexts[1].ID)
	}
	if ac.UserInfo.Roles[types.StorageCommitmentPushModelSOPClass] != types.RoleSCP {
		t.Error("SCP role of the storage commitment context was not acknowledged")
	}

	command, err := dimse.EncodeCommand(&types.Message{
		CommandField:        types.CEchoRQ,
		MessageID:           42,
		AffectedSOPClassUID: types.VerificationSOPClass,
		CommandDataSetType:  types.CommandDataSetTypeNone,
	})
	if err != nil {
		t.Fatalf("EncodeCommand() error = %v", err)
	}
	if err := dimse.SendDIMSEMessage(conn, 3, 16384, command, nil); err != nil {
		t.Fatalf("SendDIMSEMessage() error = %v", err)
	}

	rsp, _, err := dimse.ReceiveDIMSEMessage(conn)
	if err != nil {
		t.Fatalf("ReceiveDIMSEMessage() error = %v", err)
	}
	if rsp.CommandField != types.CEchoRSP || rsp.MessageIDBeingRespondedTo != 42 || rsp.Status != types.StatusSuccess {
		t.Errorf("response = %+v", rsp)
	}

	if err := WritePDU(conn, TypeReleaseRQ, EncodeReleaseRQ()); err != nil {
		t.Fatalf("WritePDU() error = %v", err)
	}
	release, err := ReadPDU(conn)
	if err != nil {
		t.Fatalf("ReadPDU() error = %v", err)
	}
	if release.Type != TypeReleaseRP {
		t.Errorf("reply type = 0x%02x, want A-RELEASE-RP", release.Type)
	}

	if err := waitDone(t, done); err != nil {
		t.Errorf("HandleConnection() error = %v", err)
	}
}

func TestLayer_RejectsUnknownCalledAETitle(t *testing.T) {
	acceptor := DefaultAcceptor()
	acceptor.CheckCalledAETitle = true
	conn, done := startLayer(t, &MockDIMSEHandler{}, acceptor)

	reply := associate(t, conn, &AssociateRQ{
		CalledAETitle:  "SOMEONE_ELSE",
		CallingAETitle: "ECHOSCU",
		PresentationContexts: []ProposedContext{
			{ID: 1, AbstractSyntax: types.VerificationSOPClass, TransferSyntaxes: []string{types.ImplicitVRLittleEndian}},
		},
	})
	if reply.Type != TypeAssociateRJ {
		t.Fatalf("reply type = 0x%02x, want A-ASSOCIATE-RJ", reply.Type)
	}
	rj, err := DecodeAssociateRJ(reply.Data)
	if err != nil {
		t.Fatalf("DecodeAssociateRJ() error = %v", err)
	}
	if rj.Reason != dcmerr.RejectReasonCalledAETitleNotRecognized {
		t.Errorf("Reason = %s", rj.Reason)
	}

	err = waitDone(t, done)
	var assocErr *dcmerr.AssociationError
	if !errors.As(err, &assocErr) {
		t.Errorf("HandleConnection() error = %v, want an AssociationError", err)
	}
}

func TestLayer_AllPDVsOfAPDUAreForwarded(t *testing.T) {
	type pdv struct {
		contextID byte
		control   byte
		data      string
	}
	received := make(chan pdv, 4)
	handler := &MockDIMSEHandler{
		HandleDIMSEMessageFunc: func(presContextID byte, msgCtrlHeader byte, data []byte, pduLayer interfaces.PDULayer) error {
			received <- pdv{presContextID, msgCtrlHeader, string(data)}
			return nil
		},
	}
	conn, done := startLayer(t, handler, nil)

	reply := associate(t, conn, &AssociateRQ{
		CalledAETitle:  "DICOMCORE",
		CallingAETitle: "STORESCU",
		PresentationContexts: []ProposedContext{
			{ID: 1, AbstractSyntax: types.CTImageStorage, TransferSyntaxes: []string{types.ExplicitVRLittleEndian}},
		},
	})
	if reply.Type != TypeAssociateAC {
		t.Fatalf("reply type = 0x%02x, want A-ASSOCIATE-AC", reply.Type)
	}

	var body []byte
	for _, p := range []pdv{{1, 0x01, "cmd"}, {1, 0x02, "data!"}} {
		body = binary.BigEndian.AppendUint32(body, uint32(len(p.data)+2))
		body = append(body, p.contextID, p.control)
		body = append(body, p.data...)
	}
	if err := WritePDU(conn, TypePDataTF, body); err != nil {
		t.Fatalf("WritePDU() error = %v", err)
	}
	conn.Close()

	if err := waitDone(t, done); err != nil {
		t.Errorf("HandleConnection() error = %v", err)
	}
	close(received)

	var got []pdv
	for p := range received {
		got = append(got, p)
	}
	if len(got) != 2 {
		t.Fatalf("forwarded %d PDVs, want 2", len(got))
	}
	if got[0].data != "cmd" || got[0].control != 0x01 || got[1].data != "data!" || got[1].control != 0x02 {
		t.Errorf("forwarded PDVs = %+v", got)
	}
}

func TestLayer_GetTransferSyntax(t *testing.T) {
	layer := NewLayer(&MockConn{}, &MockDIMSEHandler{}, "DICOMCORE", nil, nil)

	if _, err := layer.GetTransferSyntax(1); err == nil {
		t.Error("Expected error before association")
	}

	layer.associationCtx = &AssociationContext{
		CallingAETitle: "SCU",
		PresentationCtxs: map[byte]*PresentationContext{
			1: {ID: 1, AbstractSyntax: types.VerificationSOPClass, TransferSyntax: types.ImplicitVRLittleEndian},
			3: {ID: 3, AbstractSyntax: types.CTImageStorage, Result: types.ResultAbstractSyntaxNotSupported},
		},
	}

	if ts, err := layer.GetTransferSyntax(1); err != nil || ts != types.ImplicitVRLittleEndian {
		t.Errorf("GetTransferSyntax(1) = %q, %v", ts, err)
	}
	if _, err := layer.GetTransferSyntax(3); err == nil {
		t.Error("Expected error for a context without transfer syntax")
	}
	if _, err := layer.GetTransferSyntax(5); err == nil {
		t.Error("Expected error for an unknown context")
	}
	if layer.AbstractSyntax(3) != types.CTImageStorage {
		t.Errorf("AbstractSyntax(3) = %q", layer.AbstractSyntax(3))
	}
	if layer.CallingAETitle() != "SCU" {
		t.Errorf("CallingAETitle() = %q", layer.CallingAETitle())
	}
}
