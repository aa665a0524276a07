package client

import (
	"context"

	"github.com/caio-sobreiro/dicomcore/dicom"
	"github.com/caio-sobreiro/dicomcore/dimse"
	dcmerr "github.com/caio-sobreiro/dicomcore/errors"
	"github.com/caio-sobreiro/dicomcore/types"
)

// retrieveKeys are the identifiers a C-MOVE or C-GET carries at each level.
var retrieveKeys = map[types.ResourceLevel][]dicom.Tag{
	types.LevelPatient:  {dicom.TagPatientID},
	types.LevelStudy:    {dicom.TagStudyInstanceUID},
	types.LevelSeries:   {dicom.TagStudyInstanceUID, dicom.TagSeriesInstanceUID},
	types.LevelInstance: {dicom.TagStudyInstanceUID, dicom.TagSeriesInstanceUID, dicom.TagSOPInstanceUID},
}

// RetrieveKeys copies from answer the identifiers of a retrieve at level.
// A missing identifier is a BadRequest.
func RetrieveKeys(level types.ResourceLevel, answer *dicom.Dataset) (*dicom.Dataset, error) {
	tags, ok := retrieveKeys[level]
	if !ok {
		return nil, dcmerr.New(dcmerr.KindParameterOutOfRange, "invalid retrieve level %d", level)
	}
	keys := dicom.NewDataset()
	for _, tag := range tags {
		e, ok := answer.GetElement(tag)
		if !ok {
			return nil, dcmerr.New(dcmerr.KindBadRequest, "missing tag %s", tag.Format())
		}
		keys.AddElement(e.Tag, e.VR, e.Value.Clone())
	}
	return keys, nil
}

// Move asks the remote to send the resources at level matching the
// identifiers of answer to targetAET.
func (c *ControlConnection) Move(ctx context.Context, targetAET string, level types.ResourceLevel, answer *dicom.Dataset) error {
	keys, err := RetrieveKeys(level, answer)
	if err != nil {
		return err
	}
	return c.move(ctx, targetAET, level, keys)
}

// MoveAnswer moves the resource described by a C-FIND answer, whose
// QueryRetrieveLevel gives the level.
func (c *ControlConnection) MoveAnswer(ctx context.Context, targetAET string, answer *dicom.Dataset) error {
	raw, ok := answer.LookupString(dicom.TagQueryRetrieveLevel)
	if !ok {
		return dcmerr.New(dcmerr.KindBadRequest, "the answer has no QueryRetrieveLevel")
	}
	level, ok := types.ParseResourceLevel(raw)
	if !ok {
		return dcmerr.New(dcmerr.KindBadRequest, "unknown query/retrieve level %q", raw)
	}
	return c.Move(ctx, targetAET, level, answer)
}

// MovePatient moves every study of a patient.
func (c *ControlConnection) MovePatient(ctx context.Context, targetAET, patientID string) error {
	keys := dicom.NewDataset()
	keys.SetString(dicom.TagPatientID, patientID)
	return c.move(ctx, targetAET, types.LevelPatient, keys)
}

// MoveStudy moves a study.
func (c *ControlConnection) MoveStudy(ctx context.Context, targetAET, studyUID string) error {
	keys := dicom.NewDataset()
	keys.SetString(dicom.TagStudyInstanceUID, studyUID)
	return c.move(ctx, targetAET, types.LevelStudy, keys)
}

// MoveSeries moves a series.
func (c *ControlConnection) MoveSeries(ctx context.Context, targetAET, studyUID, seriesUID string) error {
	keys := dicom.NewDataset()
	keys.SetString(dicom.TagStudyInstanceUID, studyUID)
	keys.SetString(dicom.TagSeriesInstanceUID, seriesUID)
	return c.move(ctx, targetAET, types.LevelSeries, keys)
}

// MoveInstance moves a single instance.
func (c *ControlConnection) MoveInstance(ctx context.Context, targetAET, studyUID, seriesUID, instanceUID string) error {
	keys := dicom.NewDataset()
	keys.SetString(dicom.TagStudyInstanceUID, studyUID)
	keys.SetString(dicom.TagSeriesInstanceUID, seriesUID)
	keys.SetString(dicom.TagSOPInstanceUID, instanceUID)
	return c.move(ctx, targetAET, types.LevelInstance, keys)
}

// move always uses the Study Root model, which every level of the
// retrieve keys fits.
func (c *ControlConnection) move(ctx context.Context, targetAET string, level types.ResourceLevel, keys *dicom.Dataset) error {
	if targetAET == "" {
		return dcmerr.New(dcmerr.KindParameterOutOfRange, "C-MOVE needs a target AET")
	}
	query := fixWildcards(keys, c.params.Remote.Manufacturer)
	query.SetString(dicom.TagQueryRetrieveLevel, string(level.QueryLevel()))

	const sopClass = types.StudyRootQueryRetrieveInformationModelMove
	contextID, err := c.contextFor(ctx, sopClass, dcmerr.KindDicomMoveUnavailable)
	if err != nil {
		return err
	}
	identifier, err := c.encodeIdentifier(contextID, query)
	if err != nil {
		return err
	}

	a := c.association
	messageID := a.NextMessageID()
	command := &types.Message{
		CommandField:        dimse.CMoveRQ,
		MessageID:           messageID,
		Priority:            types.PriorityMedium,
		AffectedSOPClassUID: sopClass,
		MoveDestination:     targetAET,
	}
	if err := a.send(ctx, "C-MOVE", contextID, command, identifier); err != nil {
		return err
	}
	a.logger.Info("C-MOVE requested", "target_aet", targetAET, "level", level.QueryLevel(), "message_id", messageID)

	for {
		env, err := a.receive(ctx, "C-MOVE")
		if err != nil {
			return err
		}
		msg := env.Command
		if msg.CommandField != dimse.CMoveRSP || msg.MessageIDBeingRespondedTo != messageID {
			return dcmerr.New(dcmerr.KindNetworkProtocol, "unexpected %s in answer to C-MOVE from AET %q",
				dimse.CommandName(msg.CommandField), a.RemoteAETitle())
		}

		switch {
		case msg.Status == types.StatusPending:
			continue
		case msg.Status == types.StatusSuccess:
			return nil
		case msg.Status&0xF000 == 0xC000:
			return a.statusError(dcmerr.KindUnprocessableEntity, "C-MOVE", msg.Status, "unable to process, resource not found?")
		default:
			return a.statusError(dcmerr.KindNetworkProtocol, "C-MOVE", msg.Status, "")
		}
	}
}
