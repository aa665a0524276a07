package services

import (
	"context"
	"net"
	"sync"
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

func TestMatchKey(t *testing.T) {
	tests := []struct {
		name  string
		vr    dicom.VR
		key   string
		value string
		want  bool
	}{
		{"universal empty", dicom.VR_LO, "", "anything", true},
		{"universal star", dicom.VR_LO, "*", "", true},
		{"single value", dicom.VR_LO, "PAT-1", "PAT-1", true},
		{"single value mismatch", dicom.VR_LO, "PAT-1", "PAT-2", false},
		{"star wildcard", dicom.VR_LO, "PAT*", "PAT-42", true},
		{"question wildcard", dicom.VR_LO, "PAT-?", "PAT-4", true},
		{"question needs one char", dicom.VR_LO, "PAT-?", "PAT-", false},
		{"person names ignore case", dicom.VR_PN, "doe*", "DOE^JANE", true},
		{"other VRs are case sensitive", dicom.VR_LO, "ct", "CT", false},
		{"UID list", dicom.VR_UI, `1.2.3\1.2.4`, "1.2.4", true},
		{"UID list mismatch", dicom.VR_UI, `1.2.3\1.2.4`, "1.2.5", false},
		{"UIDs have no wildcards", dicom.VR_UI, "1.2.*", "1.2.3", false},
		{"date range", dicom.VR_DA, "20240101-20241231", "20240615", true},
		{"date range outside", dicom.VR_DA, "20240101-20241231", "20250101", false},
		{"open lower bound", dicom.VR_DA, "-20240101", "20231231", true},
		{"open upper bound", dicom.VR_DA, "20240101-", "20231231", false},
		{"range needs a value", dicom.VR_DA, "20240101-", "", false},
		{"time range with fraction", dicom.VR_TM, "080000-120000", "120000.5", true},
		{"value list", dicom.VR_CS, `MR\CT`, "CT", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := matchKey(tt.vr, tt.key, tt.value); got != tt.want {
				t.Errorf("matchKey(%s, %q, %q) = %v, want %v", tt.vr, tt.key, tt.value, got, tt.want)
			}
		})
	}
}

// recordingResponder collects the responses of a streaming handler.
type recordingResponder struct {
	mu        sync.Mutex
	responses []*types.Message
	datasets  []*dicom.Dataset
}

func (r *recordingResponder) SendResponse(msg *types.Message, ds *dicom.Dataset, transferSyntaxUID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *msg
	r.responses = append(r.responses, &copied)
	r.datasets = append(r.datasets, ds)
	return nil
}

func (r *recordingResponder) last() *types.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.responses[len(r.responses)-1]
}

func seededStore(t *testing.T) *StoreService {
	t.Helper()
	store := NewStoreService(storage.NewMemory(), index.NewMemory())
	for _, uid := range []string{"1.2.840.1.1.1", "1.2.840.1.1.2"} {
		ds := ctDataset(uid)
		ds.SetString(dicom.TagStudyDate, "20240615")
		if _, err := store.Store(t.Context(), dicom.NewInstance(ds, types.ExplicitVRLittleEndian), nil); err != nil {
			t.Fatalf("Store failed: %v", err)
		}
	}
	other := ctDataset("1.2.840.2.1.1")
	other.SetString(dicom.TagPatientID, "PAT-2")
	other.SetString(dicom.TagPatientName, "ROE^RICHARD")
	other.SetString(dicom.TagStudyInstanceUID, "1.2.840.2")
	other.SetString(dicom.TagSeriesInstanceUID, "1.2.840.2.1")
	other.SetString(dicom.TagStudyDate, "20230101")
	if _, err := store.Store(t.Context(), dicom.NewInstance(other, types.ExplicitVRLittleEndian), nil); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	return store
}

func findRequest(level types.QueryLevel, keys ...any) (*types.Message, interfaces.MessageContext) {
	ds := dicom.NewDataset()
	ds.SetString(dicom.TagQueryRetrieveLevel, string(level))
	for i := 0; i < len(keys); i += 2 {
		ds.SetString(keys[i].(dicom.Tag), keys[i+1].(string))
	}
	msg := &types.Message{
		CommandField:        dimse.CFindRQ,
		MessageID:           11,
		AffectedSOPClassUID: types.StudyRootQueryRetrieveInformationModelFind,
	}
	return msg, interfaces.MessageContext{TransferSyntaxUID: types.ImplicitVRLittleEndian, CallingAETitle: "VIEWER", Dataset: ds}
}

func TestFindService(t *testing.T) {
	store := seededStore(t)
	svc := NewFindService(store.index, "DICOMCORE", nil)

	tests := []struct {
		name    string
		level   types.QueryLevel
		keys    []any
		matches int
		pending uint16
	}{
		{"all studies", types.QueryLevelStudy, []any{dicom.TagStudyInstanceUID, ""}, 2, types.StatusPending},
		{"studies by patient name", types.QueryLevelStudy, []any{dicom.TagPatientName, "doe*"}, 1, types.StatusPending},
		{"studies by date range", types.QueryLevelStudy, []any{dicom.TagStudyDate, "20240101-"}, 1, types.StatusPending},
		{"instances of a study", types.QueryLevelImage, []any{dicom.TagStudyInstanceUID, "1.2.840.1", dicom.TagSOPInstanceUID, ""}, 2, types.StatusPending},
		{"exact instance", types.QueryLevelImage, []any{dicom.TagSOPInstanceUID, "1.2.840.2.1.1"}, 1, types.StatusPending},
		{"no match", types.QueryLevelSeries, []any{dicom.TagModality, "MR"}, 0, types.StatusPending},
		{"unsupported key", types.QueryLevelStudy, []any{dicom.TagSeriesDescription, "HEAD"}, 2, types.StatusPendingWarning},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, meta := findRequest(tt.level, tt.keys...)
			responder := &recordingResponder{}
			if err := svc.HandleDIMSEStreaming(t.Context(), msg, nil, meta, responder); err != nil {
				t.Fatalf("HandleDIMSEStreaming failed: %v", err)
			}
			if len(responder.responses) != tt.matches+1 {
				t.Fatalf("got %d responses, want %d", len(responder.responses), tt.matches+1)
			}
			for i := 0; i < tt.matches; i++ {
				if responder.responses[i].Status != tt.pending {
					t.Errorf("pending status = 0x%04x, want 0x%04x", responder.responses[i].Status, tt.pending)
				}
				answer := responder.datasets[i]
				if answer.GetString(dicom.TagRetrieveAETitle) != "DICOMCORE" || answer.GetString(dicom.TagQueryRetrieveLevel) != string(tt.level) {
					t.Errorf("answer %d lacks the retrieve AET or level", i)
				}
				for j := 0; j < len(tt.keys); j += 2 {
					if !answer.Has(tt.keys[j].(dicom.Tag)) {
						t.Errorf("answer %d lacks requested key %s", i, tt.keys[j].(dicom.Tag).Format())
					}
				}
			}
			if final := responder.last(); final.Status != types.StatusSuccess || final.HasDataset() {
				t.Errorf("final response = 0x%04x, dataset %v", final.Status, final.HasDataset())
			}
		})
	}
}

func TestFindServiceInvalidLevel(t *testing.T) {
	svc := NewFindService(index.NewMemory(), "", nil)
	msg, meta := findRequest("WORKLIST")
	responder := &recordingResponder{}
	if err := svc.HandleDIMSEStreaming(t.Context(), msg, nil, meta, responder); err != nil {
		t.Fatal(err)
	}
	if len(responder.responses) != 1 || responder.responses[0].Status != types.StatusDataSetMismatch {
		t.Errorf("responses = %+v", responder.responses)
	}
}

// startDestination serves C-STORE into a fresh store on a loopback
// listener.
func startDestination(t *testing.T, aet string) (client.RemoteModality, *StoreService) {
	t.Helper()
	dest := NewStoreService(storage.NewMemory(), index.NewMemory())
	registry := NewRegistry()
	registry.RegisterHandler(dimse.CStoreRQ, dest)

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
			layer := pdu.NewLayer(conn, dimse.NewService(registry, nil), aet, nil, pdu.DefaultAcceptor())
			go layer.HandleConnection()
		}
	}()
	return client.RemoteModality{AETitle: aet, Host: "127.0.0.1", Port: listener.Addr().(*net.TCPAddr).Port}, dest
}

func TestMoveService(t *testing.T) {
	store := seededStore(t)
	remote, dest := startDestination(t, "ARCHIVE")
	resolve := func(aet string) (client.RemoteModality, error) {
		if aet != remote.AETitle {
			return client.RemoteModality{}, dcmerr.New(dcmerr.KindInexistentItem, "unknown AET %s", aet)
		}
		return remote, nil
	}
	svc := NewMoveService(store, resolve, client.Parameters{LocalAETitle: "DICOMCORE", Timeout: 5 * time.Second})

	move := func(destination string, keys ...any) *recordingResponder {
		_, meta := findRequest(types.QueryLevelStudy, keys...)
		msg := &types.Message{
			CommandField:        dimse.CMoveRQ,
			MessageID:           21,
			AffectedSOPClassUID: types.StudyRootQueryRetrieveInformationModelMove,
			MoveDestination:     destination,
		}
		responder := &recordingResponder{}
		if err := svc.HandleDIMSEStreaming(context.Background(), msg, nil, meta, responder); err != nil {
			t.Fatalf("HandleDIMSEStreaming failed: %v", err)
		}
		return responder
	}

	responder := move("ARCHIVE", dicom.TagStudyInstanceUID, "1.2.840.1")
	final := responder.last()
	if final.Status != types.StatusSuccess {
		t.Fatalf("final status = 0x%04x", final.Status)
	}
	if final.NumberOfCompletedSuboperations == nil || *final.NumberOfCompletedSuboperations != 2 {
		t.Errorf("completed sub-operations = %v, want 2", final.NumberOfCompletedSuboperations)
	}
	if len(responder.responses) != 3 {
		t.Errorf("got %d responses, want 2 pending and 1 final", len(responder.responses))
	}
	moved, err := dest.index.List(t.Context(), types.LevelInstance)
	if err != nil || len(moved) != 2 {
		t.Errorf("destination holds %v, %v", moved, err)
	}

	if got := move("NOWHERE", dicom.TagStudyInstanceUID, "1.2.840.1").last().Status; got != types.StatusMoveDestinationUnknown {
		t.Errorf("unknown destination status = 0x%04x", got)
	}
}
