package services

import (
	"net"
	"testing"
	"time"

	"github.com/caio-sobreiro/dicomcore/client"
	"github.com/caio-sobreiro/dicomcore/dicom"
	"github.com/caio-sobreiro/dicomcore/dimse"
	dcmerr "github.com/caio-sobreiro/dicomcore/errors"
	"github.com/caio-sobreiro/dicomcore/index"
	"github.com/caio-sobreiro/dicomcore/interfaces"
	"github.com/caio-sobreiro/dicomcore/pdu"
	"github.com/caio-sobreiro/dicomcore/storage"
	"github.com/caio-sobreiro/dicomcore/types"
)

type receivedReport struct {
	from   string
	report client.CommitmentReport
}

// startModality serves N-EVENT-REPORT requests on a loopback listener, as
// a modality waiting for the outcome of its commitment request would.
func startModality(t *testing.T) (client.RemoteModality, <-chan receivedReport) {
	t.Helper()
	reports := make(chan receivedReport, 4)
	registry := NewRegistry()
	registry.RegisterHandler(dimse.NEventReportRQ, NewCommitmentReportService(func(from string, report client.CommitmentReport) {
		reports <- receivedReport{from: from, report: report}
	}, nil))

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
			layer := pdu.NewLayer(conn, dimse.NewService(registry, nil), "MODALITY", nil, pdu.DefaultAcceptor())
			go layer.HandleConnection()
		}
	}()

	remote := client.RemoteModality{
		AETitle: "MODALITY",
		Host:    "127.0.0.1",
		Port:    listener.Addr().(*net.TCPAddr).Port,
	}
	return remote, reports
}

func commitmentRequest(txUID string, refs ...client.SOPReference) (*types.Message, interfaces.MessageContext) {
	action := uint16(types.CommitmentActionRequest)
	msg := &types.Message{
		CommandField:            dimse.NActionRQ,
		MessageID:               3,
		RequestedSOPClassUID:    types.StorageCommitmentPushModelSOPClass,
		RequestedSOPInstanceUID: types.StorageCommitmentPushModelSOPInstance,
		ActionTypeID:            &action,
	}
	ds := dicom.NewDataset()
	ds.SetString(dicom.TagTransactionUID, txUID)
	var items []*dicom.Dataset
	for _, ref := range refs {
		item := dicom.NewDataset()
		item.SetString(dicom.TagReferencedSOPClassUID, ref.SOPClassUID)
		item.SetString(dicom.TagReferencedSOPInstanceUID, ref.SOPInstanceUID)
		items = append(items, item)
	}
	ds.SetSequence(dicom.TagReferencedSOPSequence, items...)

	meta := interfaces.MessageContext{
		PresentationContextID: 1,
		AbstractSyntax:        types.StorageCommitmentPushModelSOPClass,
		TransferSyntaxUID:     types.ImplicitVRLittleEndian,
		CallingAETitle:        "MODALITY",
		CalledAETitle:         "DICOMCORE",
		Dataset:               ds,
	}
	return msg, meta
}

func newCommitmentService(t *testing.T, remote client.RemoteModality) *CommitmentService {
	t.Helper()
	store := NewStoreService(storage.NewMemory(), index.NewMemory())
	if _, err := store.Store(t.Context(), dicom.NewInstance(ctDataset("1.2.840.1.1.1"), types.ExplicitVRLittleEndian), nil); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	funnel := client.NewFunnel(0, nil)
	t.Cleanup(funnel.Close)
	resolve := func(aet string) (client.RemoteModality, error) {
		if aet != remote.AETitle {
			return client.RemoteModality{}, dcmerr.New(dcmerr.KindInexistentItem, "unknown AET %s", aet)
		}
		return remote, nil
	}
	return NewCommitmentService(store, funnel, resolve, client.Parameters{
		LocalAETitle: "DICOMCORE",
		Timeout:      5 * time.Second,
	})
}

func waitReport(t *testing.T, reports <-chan receivedReport) receivedReport {
	t.Helper()
	select {
	case r := <-reports:
		return r
	case <-time.After(10 * time.Second):
		t.Fatal("no N-EVENT-REPORT received")
	}
	return receivedReport{}
}

func TestCommitmentServiceReports(t *testing.T) {
	remote, reports := startModality(t)
	svc := newCommitmentService(t, remote)

	txUID := client.NewTransactionUID()
	msg, meta := commitmentRequest(txUID,
		client.SOPReference{SOPClassUID: types.CTImageStorage, SOPInstanceUID: "1.2.840.1.1.1"},
		client.SOPReference{SOPClassUID: types.CTImageStorage, SOPInstanceUID: "1.2.840.1.1.99"},
		client.SOPReference{SOPClassUID: types.MRImageStorage, SOPInstanceUID: "1.2.840.1.1.1"},
	)

	rsp, _, err := svc.HandleDIMSE(t.Context(), msg, nil, meta)
	if err != nil {
		t.Fatalf("HandleDIMSE failed: %v", err)
	}
	if rsp.CommandField != dimse.NActionRSP || rsp.Status != types.StatusSuccess {
		t.Fatalf("response = 0x%04x status 0x%04x", rsp.CommandField, rsp.Status)
	}
	if rsp.ActionTypeID == nil || *rsp.ActionTypeID != types.CommitmentActionRequest {
		t.Error("N-ACTION-RSP must echo the action type")
	}

	got := waitReport(t, reports)
	if got.from != "DICOMCORE" {
		t.Errorf("report sent by %q, want DICOMCORE", got.from)
	}
	if got.report.TransactionUID != txUID || got.report.RetrieveAETitle != "DICOMCORE" {
		t.Errorf("report = %+v", got.report)
	}

	want := map[client.SOPReference]uint16{
		{SOPClassUID: types.CTImageStorage, SOPInstanceUID: "1.2.840.1.1.1"}:  0,
		{SOPClassUID: types.CTImageStorage, SOPInstanceUID: "1.2.840.1.1.99"}: types.FailureReasonNoSuchObjectInstance,
		{SOPClassUID: types.MRImageStorage, SOPInstanceUID: "1.2.840.1.1.1"}:  types.FailureReasonClassInstanceConflict,
	}
	if len(got.report.Outcomes) != len(want) {
		t.Fatalf("report has %d outcomes, want %d", len(got.report.Outcomes), len(want))
	}
	for _, o := range got.report.Outcomes {
		if reason, ok := want[o.SOPReference]; !ok || reason != o.FailureReason {
			t.Errorf("outcome %+v, want reason 0x%04x", o, reason)
		}
	}

	// Replaying the transaction fails every instance.
	rsp, _, _ = svc.HandleDIMSE(t.Context(), msg, nil, meta)
	if rsp.Status != types.StatusSuccess {
		t.Fatalf("replay status 0x%04x", rsp.Status)
	}
	for _, o := range waitReport(t, reports).report.Outcomes {
		if o.FailureReason != types.FailureReasonDuplicateTransactionUID {
			t.Errorf("replayed outcome %+v, want duplicate transaction", o)
		}
	}
}

func TestCommitmentServiceRejects(t *testing.T) {
	svc := newCommitmentService(t, client.RemoteModality{AETitle: "MODALITY", Host: "127.0.0.1", Port: 1})

	wrongAction := func(msg *types.Message, meta interfaces.MessageContext) (*types.Message, interfaces.MessageContext) {
		action := uint16(7)
		msg.ActionTypeID = &action
		return msg, meta
	}
	wrongClass := func(msg *types.Message, meta interfaces.MessageContext) (*types.Message, interfaces.MessageContext) {
		msg.RequestedSOPClassUID = types.VerificationSOPClass
		return msg, meta
	}
	unknownCaller := func(msg *types.Message, meta interfaces.MessageContext) (*types.Message, interfaces.MessageContext) {
		meta.CallingAETitle = "STRANGER"
		return msg, meta
	}
	noTransaction := func(msg *types.Message, meta interfaces.MessageContext) (*types.Message, interfaces.MessageContext) {
		meta.Dataset.Remove(dicom.TagTransactionUID)
		return msg, meta
	}

	tests := []struct {
		name   string
		alter  func(*types.Message, interfaces.MessageContext) (*types.Message, interfaces.MessageContext)
		status uint16
	}{
		{"unknown action type", wrongAction, types.StatusNoSuchActionType},
		{"not the push model", wrongClass, types.StatusNoSuchSOPClass},
		{"unknown modality", unknownCaller, types.StatusProcessingFailure},
		{"missing transaction UID", noTransaction, types.StatusProcessingFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, meta := tt.alter(commitmentRequest(client.NewTransactionUID()))
			rsp, _, err := svc.HandleDIMSE(t.Context(), msg, nil, meta)
			if err != nil {
				t.Fatalf("HandleDIMSE failed: %v", err)
			}
			if rsp.Status != tt.status {
				t.Errorf("status = 0x%04x, want 0x%04x", rsp.Status, tt.status)
			}
		})
	}
}

func TestCommitmentReportServiceParsesFailures(t *testing.T) {
	var got client.CommitmentReport
	svc := NewCommitmentReportService(func(_ string, r client.CommitmentReport) { got = r }, nil)

	failed := dicom.NewDataset()
	failed.SetString(dicom.TagReferencedSOPClassUID, types.CTImageStorage)
	failed.SetString(dicom.TagReferencedSOPInstanceUID, "1.2.3.2")
	failed.SetString(dicom.TagFailureReason, "274")
	ok := dicom.NewDataset()
	ok.SetString(dicom.TagReferencedSOPClassUID, types.CTImageStorage)
	ok.SetString(dicom.TagReferencedSOPInstanceUID, "1.2.3.1")

	ds := dicom.NewDataset()
	ds.SetString(dicom.TagTransactionUID, "2.25.1")
	ds.SetSequence(dicom.TagReferencedSOPSequence, ok)
	ds.SetSequence(dicom.TagFailedSOPSequence, failed)

	event := uint16(types.CommitmentEventFailuresPresent)
	msg := &types.Message{
		CommandField:           dimse.NEventReportRQ,
		MessageID:              9,
		AffectedSOPClassUID:    types.StorageCommitmentPushModelSOPClass,
		AffectedSOPInstanceUID: types.StorageCommitmentPushModelSOPInstance,
		EventTypeID:            &event,
	}
	rsp, _, err := svc.HandleDIMSE(t.Context(), msg, nil, interfaces.MessageContext{Dataset: ds})
	if err != nil || rsp.Status != types.StatusSuccess {
		t.Fatalf("status 0x%04x, err %v", rsp.Status, err)
	}
	if rsp.EventTypeID == nil || *rsp.EventTypeID != event {
		t.Error("N-EVENT-REPORT-RSP must echo the event type")
	}
	if len(got.Outcomes) != 2 || got.Outcomes[0].FailureReason != 0 || got.Outcomes[1].FailureReason != types.FailureReasonNoSuchObjectInstance {
		t.Errorf("outcomes = %+v", got.Outcomes)
	}
}
