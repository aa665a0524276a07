package client

import (
	"context"

	"github.com/caio-sobreiro/dicomcore/dicom"
	dcmerr "github.com/caio-sobreiro/dicomcore/errors"
	"github.com/caio-sobreiro/dicomcore/types"
)

// ControlConnection runs verification and query/retrieve requests against
// one remote modality. The association is opened lazily and reused.
type ControlConnection struct {
	params      Parameters
	association *Association
}

// controlSOPClasses are proposed on every control association.
var controlSOPClasses = []string{
	types.VerificationSOPClass,
	types.PatientRootQueryRetrieveInformationModelFind,
	types.PatientRootQueryRetrieveInformationModelMove,
	types.StudyRootQueryRetrieveInformationModelFind,
	types.StudyRootQueryRetrieveInformationModelMove,
	types.ModalityWorklistInformationModelFind,
	types.PatientRootQueryRetrieveInformationModelGet,
	types.StudyRootQueryRetrieveInformationModelGet,
}

// NewControlConnection prepares the proposals of a control association.
func NewControlConnection(params Parameters) *ControlConnection {
	c := &ControlConnection{params: params, association: NewAssociation()}
	for _, sopClass := range controlSOPClasses {
		// Cannot fail: far below the context limit.
		c.association.ProposeGenericPresentationContext(sopClass)
	}
	return c
}

// ProposeRetrieveStorageClasses accepts C-STORE sub-operations of a C-GET
// for the given storage classes, in SCP role.
func (c *ControlConnection) ProposeRetrieveStorageClasses(sopClasses []string, transferSyntaxes []string) error {
	if len(transferSyntaxes) == 0 {
		transferSyntaxes = types.UncompressedTransferSyntaxes()
	}
	for _, sopClass := range sopClasses {
		if err := c.association.ProposePresentationContext(sopClass, transferSyntaxes, types.RoleSCP); err != nil {
			return err
		}
	}
	return nil
}

// Parameters returns the association parameters.
func (c *ControlConnection) Parameters() Parameters {
	return c.params
}

// Close releases the association, if open.
func (c *ControlConnection) Close() error {
	return c.association.Close()
}

func (c *ControlConnection) open(ctx context.Context) error {
	return c.association.Open(ctx, c.params)
}

// contextFor opens the association and returns the context serving sopClass.
func (c *ControlConnection) contextFor(ctx context.Context, sopClass string, unavailable dcmerr.Kind) (byte, error) {
	if err := c.open(ctx); err != nil {
		return 0, err
	}
	id, ok := c.association.acceptedContext(sopClass)
	if !ok {
		return 0, dcmerr.New(unavailable, "remote AET is %s", c.params.Remote.AETitle).WithDetail(sopClass)
	}
	return id, nil
}

// encodeIdentifier writes a query with the syntax of the context.
func (c *ControlConnection) encodeIdentifier(contextID byte, ds *dicom.Dataset) ([]byte, error) {
	ts := c.association.TransferSyntax(contextID)
	data, err := dicom.EncodeDatasetWithTransferSyntax(ds, ts)
	if err != nil {
		return nil, dcmerr.Wrap(dcmerr.KindBadRequest, err, "cannot encode the query for AET %q", c.params.Remote.AETitle)
	}
	return data, nil
}
