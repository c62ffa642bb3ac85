package transfers

import (
	"golang.org/x/xerrors"

	"github.com/filecoin-project/go-address"

	"github.com/Thierry61/safe-client-libs/types"
)

// Validator decides whether an agreement proof authorizes exactly the given
// debit claim. It performs no state mutation; all bookkeeping lives in the
// actor.
type Validator interface {
	Validate(proof *types.AgreementProof, claim *types.Debit) error
}

type sectionValidator struct {
	section address.Address
}

// NewSectionValidator returns a Validator that accepts proofs carrying a
// valid signature from the given section key over the claimed debit.
func NewSectionValidator(section address.Address) Validator {
	return &sectionValidator{section: section}
}

func (v *sectionValidator) Validate(proof *types.AgreementProof, claim *types.Debit) error {
	if !proof.Debit.Equals(claim) {
		return xerrors.Errorf("proof does not match claim: got account %s seq %d amount %s, expected account %s seq %d amount %s",
			proof.Debit.Account, proof.Debit.Seq, proof.Debit.Amount,
			claim.Account, claim.Seq, claim.Amount)
	}

	if proof.SectionKey != v.section {
		return xerrors.Errorf("proof signed by unknown section key %s", proof.SectionKey)
	}

	if proof.Signature == nil {
		return xerrors.New("proof has no section signature")
	}

	sb, err := proof.Debit.SigningBytes()
	if err != nil {
		return err
	}

	if err := proof.Signature.Verify(v.section, sb); err != nil {
		return xerrors.Errorf("invalid section signature on proof: %w", err)
	}

	return nil
}
