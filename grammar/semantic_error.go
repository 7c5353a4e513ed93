package grammar

type SemanticError struct {
	message string
}

func newSemanticError(message string) *SemanticError {
	return &SemanticError{
		message: message,
	}
}

func (e *SemanticError) Error() string {
	return e.message
}

var (
	semErrNoProduction        = newSemanticError("a grammar needs at least one production")
	semErrUndefinedSym        = newSemanticError("undefined symbol")
	semErrUndefinedStart      = newSemanticError("the start symbol is not a non-terminal")
	semErrDuplicateProduction = newSemanticError("duplicate production")
	semErrDuplicateName       = newSemanticError("duplicate names are not allowed between terminals and non-terminals")
	semErrTermCannotBeSkipped = newSemanticError("a terminal used in productions cannot be skipped")
	semErrOverrideState       = newSemanticError("the override refers to a state that does not exist")
	semErrOverrideSymbol      = newSemanticError("the override refers to an unknown terminal")
	semErrOverrideNoMatch     = newSemanticError("the override matches no candidate action")
	semErrOverrideAmbiguous   = newSemanticError("the override matches more than one candidate action")
	semErrDuplicateOverride   = newSemanticError("the cell is overridden twice")
)
