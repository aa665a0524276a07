package client

import (
	"context"
	"errors"

	"github.com/caio-sobreiro/dicomcore/dicom"
	"github.com/caio-sobreiro/dicomcore/dimse"
	dcmerr "github.com/caio-sobreiro/dicomcore/errors"
	"github.com/caio-sobreiro/dicomcore/types"
)

// ErrCancel may be returned by a FindFunc to cancel the query. The
// remaining answers are drained and the query ends without error. Any
// other error also cancels the query and is returned.
var ErrCancel = errors.New("cancel query")

// FindFunc receives one answer of a C-FIND.
type FindFunc func(answer *dicom.Dataset) error

// levelCounters are the computed attributes a query may ask for at each level.
var levelCounters = map[types.ResourceLevel][]dicom.Tag{
	types.LevelPatient: {
		dicom.TagNumberOfPatientRelatedStudies,
		dicom.TagNumberOfPatientRelatedSeries,
		dicom.TagNumberOfPatientRelatedInstances,
	},
	types.LevelStudy: {
		dicom.TagModalitiesInStudy,
		dicom.TagNumberOfStudyRelatedSeries,
		dicom.TagNumberOfStudyRelatedInstances,
		dicom.TagSOPClassesInStudy,
	},
	types.LevelSeries: {
		dicom.TagNumberOfSeriesRelatedInstances,
	},
}

// NormalizeFindQuery keeps the attributes of fields that a query at level
// may carry: main tags of the level and of the levels above, the level
// counters and the character set. The other attributes are dropped with
// a warning.
func (c *ControlConnection) NormalizeFindQuery(level types.ResourceLevel, fields *dicom.Dataset) *dicom.Dataset {
	allowed := map[dicom.Tag]bool{dicom.TagSpecificCharacterSet: true}
	for l := types.LevelPatient; l <= level; l++ {
		for _, tag := range dicom.MainTags(l) {
			allowed[tag] = true
		}
	}
	for _, tag := range levelCounters[level] {
		allowed[tag] = true
	}

	out := dicom.NewDataset()
	for _, e := range fields.Elements() {
		if !allowed[e.Tag] {
			c.params.logger().Warn("Tag not allowed for this C-FIND level, will be ignored",
				"tag", e.Tag.String(), "level", level.QueryLevel())
			continue
		}
		out.AddElement(e.Tag, e.VR, e.Value.Clone())
	}
	return out
}

// fixWildcards adapts universal matches to the manufacturer of the remote.
func fixWildcards(fields *dicom.Dataset, manufacturer Manufacturer) *dicom.Dataset {
	out := fields.Clone()
	if manufacturer != ManufacturerGenericNoWildcardInDates && manufacturer != ManufacturerGenericNoUniversalWildcard {
		return out
	}
	for _, e := range out.Elements() {
		if manufacturer == ManufacturerGenericNoWildcardInDates && e.VR != dicom.VR_DA {
			continue
		}
		if !e.Value.IsNull() && !e.Value.IsSequence() && e.Value.String() == "*" {
			out.AddElement(e.Tag, e.VR, dicom.StringValue(""))
		}
	}
	return out
}

// Find queries the remote at level and returns its answers.
func (c *ControlConnection) Find(ctx context.Context, level types.ResourceLevel, fields *dicom.Dataset, normalize bool) ([]*dicom.Dataset, error) {
	var answers []*dicom.Dataset
	err := c.FindFunc(ctx, level, fields, normalize, func(answer *dicom.Dataset) error {
		answers = append(answers, answer)
		return nil
	})
	return answers, err
}

// FindFunc queries the remote at level and hands every answer to fn. The
// query is completed with the identifiers of level and of the levels above
// (universal matching). Patient queries use the Patient Root model, the
// other levels the Study Root model.
func (c *ControlConnection) FindFunc(ctx context.Context, level types.ResourceLevel, fields *dicom.Dataset, normalize bool, fn FindFunc) error {
	if level < types.LevelPatient || level > types.LevelInstance {
		return dcmerr.New(dcmerr.KindParameterOutOfRange, "invalid query level %d", level)
	}
	if fields == nil {
		fields = dicom.NewDataset()
	}
	var query *dicom.Dataset
	if normalize {
		query = fixWildcards(c.NormalizeFindQuery(level, fields), c.params.Remote.Manufacturer)
	} else {
		query = fields.Clone()
	}

	sopClass := types.StudyRootQueryRetrieveInformationModelFind
	if level == types.LevelPatient {
		sopClass = types.PatientRootQueryRetrieveInformationModelFind
	}
	query.SetString(dicom.TagQueryRetrieveLevel, string(level.QueryLevel()))

	universal := ""
	if c.params.Remote.Manufacturer == ManufacturerGE {
		universal = "*"
	}
	required := []dicom.Tag{dicom.TagPatientID}
	if level >= types.LevelStudy {
		required = append(required, dicom.TagAccessionNumber, dicom.TagStudyInstanceUID)
	}
	if level >= types.LevelSeries {
		required = append(required, dicom.TagSeriesInstanceUID)
	}
	if level >= types.LevelInstance {
		required = append(required, dicom.TagSOPInstanceUID)
	}
	for _, tag := range required {
		if !query.Has(tag) {
			query.SetString(tag, universal)
		}
	}

	return c.find(ctx, sopClass, query, string(level.QueryLevel()), fn)
}

// FindWorklist runs a modality worklist query as is.
func (c *ControlConnection) FindWorklist(ctx context.Context, query *dicom.Dataset) ([]*dicom.Dataset, error) {
	var answers []*dicom.Dataset
	err := c.find(ctx, types.ModalityWorklistInformationModelFind, query, "", func(answer *dicom.Dataset) error {
		answers = append(answers, answer)
		return nil
	})
	return answers, err
}

func (c *ControlConnection) find(ctx context.Context, sopClass string, query *dicom.Dataset, level string, fn FindFunc) error {
	contextID, err := c.contextFor(ctx, sopClass, dcmerr.KindDicomFindUnavailable)
	if err != nil {
		return err
	}
	identifier, err := c.encodeIdentifier(contextID, query)
	if err != nil {
		return err
	}

	a := c.association
	logger := a.logger.With("operation", "C-FIND", "sop_class", sopClass)
	messageID := a.NextMessageID()
	command := &types.Message{
		CommandField:        dimse.CFindRQ,
		MessageID:           messageID,
		Priority:            types.PriorityMedium,
		AffectedSOPClassUID: sopClass,
	}
	if err := a.send(ctx, "C-FIND", contextID, command, identifier); err != nil {
		return err
	}

	ts := a.TransferSyntax(contextID)
	canceled := false
	var callbackErr error
	for {
		env, err := a.receive(ctx, "C-FIND")
		if err != nil {
			return err
		}
		msg := env.Command
		if msg.CommandField != dimse.CFindRSP || msg.MessageIDBeingRespondedTo != messageID {
			return dcmerr.New(dcmerr.KindNetworkProtocol, "unexpected %s in answer to C-FIND from AET %q",
				dimse.CommandName(msg.CommandField), a.RemoteAETitle())
		}

		if len(env.Data) > 0 && !canceled {
			answer, err := dicom.ParseDatasetWithTransferSyntax(env.Data, ts)
			if err != nil {
				logger.Warn("Ignoring unparsable C-FIND answer", "error", err)
			} else {
				if level != "" && !answer.Has(dicom.TagQueryRetrieveLevel) {
					answer.SetString(dicom.TagQueryRetrieveLevel, level)
				}
				if err := fn(answer); err != nil {
					if !errors.Is(err, ErrCancel) {
						callbackErr = err
					}
					canceled = true
					if err := c.cancel(ctx, contextID, messageID); err != nil {
						return err
					}
				}
			}
		}

		switch msg.Status {
		case types.StatusPending, types.StatusPendingWarning:
			continue
		case types.StatusSuccess:
			return callbackErr
		case types.StatusCancel:
			if canceled {
				return callbackErr
			}
		}
		if msg.Status&0xF000 == 0xC000 {
			return a.statusError(dcmerr.KindUnprocessableEntity, "C-FIND", msg.Status, "unable to process, invalid query?")
		}
		return a.statusError(dcmerr.KindNetworkProtocol, "C-FIND", msg.Status, "")
	}
}
