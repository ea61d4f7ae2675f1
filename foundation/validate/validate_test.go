package validate_test

import (
	"strings"
	"testing"

	"github.com/ardanlabs/utxoledger/foundation/validate"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

type output struct {
	Value     uint64 `json:"value" validate:"required"`
	Recipient string `json:"recipient_hash" validate:"required,len=66"`
}

func Test_Check(t *testing.T) {
	t.Log("Given the need to validate request models.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen handling a valid model.", testID)
		{
			out := output{Value: 1, Recipient: "0x" + strings.Repeat("a", 64)}
			if err := validate.Check(out); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould pass validation: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould pass validation.", success, testID)
		}

		testID = 1
		t.Logf("\tTest %d:\tWhen handling an invalid model.", testID)
		{
			err := validate.Check(output{Recipient: "0x00"})
			if !validate.IsFieldErrors(err) {
				t.Fatalf("\t%s\tTest %d:\tShould get field errors: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould get field errors.", success, testID)

			fields := validate.GetFieldErrors(err).Fields()
			if _, exists := fields["value"]; !exists {
				t.Fatalf("\t%s\tTest %d:\tShould name the field by its json tag: %v", failed, testID, fields)
			}
			if _, exists := fields["recipient_hash"]; !exists {
				t.Fatalf("\t%s\tTest %d:\tShould name the field by its json tag: %v", failed, testID, fields)
			}
			t.Logf("\t%s\tTest %d:\tShould name the fields by their json tags.", success, testID)
		}
	}
}
