package record

import (
	"log"

	"github.com/bricker/vivial-sub003/pkg/types"
)

// Decrypter decrypts an encrypted account identifier carried in a
// correlation context. Key management is the caller's concern; a nil
// Decrypter means identifiers arrive in the clear.
type Decrypter interface {
	Decrypt(ciphertext string) (string, error)
}

// Account identifies the customer-application account the visitor is
// signed in to, if any.
type Account struct {
	AccountID *string
	Extra     []KeyedValue
}

// AccountSchema returns the schema for an account record column.
func AccountSchema() *types.FieldSchema {
	return &types.FieldSchema{
		Name:        "account",
		Type:        types.FieldRecord,
		Description: "The signed-in account associated with this atom, if known",
		Fields: []*types.FieldSchema{
			{Name: "account_id", Type: types.FieldString},
			KeyedValueSchema("extra", "Additional account properties supplied by the customer application"),
		},
	}
}

// AccountFromResource maps an upstream account object into an Account,
// decrypting the account id when a decrypter is supplied. A failed
// decryption drops the id rather than persisting ciphertext.
func AccountFromResource(resource Resource, dec Decrypter) *Account {
	if resource == nil {
		return nil
	}
	a := &Account{
		AccountID: resource.optString("account_id"),
		Extra:     KeyedValuesFromMap(resource.optMap("extra")),
	}
	if a.AccountID != nil && dec != nil {
		plain, err := dec.Decrypt(*a.AccountID)
		if err != nil {
			log.Printf("[WARN] record: account id decryption failed, dropping id: %v", err)
			a.AccountID = nil
		} else {
			a.AccountID = &plain
		}
	}
	return a
}

// Row returns the warehouse row fragment for the account.
func (a *Account) Row() map[string]interface{} {
	if a == nil {
		return nil
	}
	row := map[string]interface{}{}
	putString(row, "account_id", a.AccountID)
	if extra := keyedValueRows(a.Extra); extra != nil {
		row["extra"] = extra
	}
	return row
}
