package parser

type SyntaxError struct {
	message string
}

func newSyntaxError(message string) *SyntaxError {
	return &SyntaxError{
		message: message,
	}
}

func (e *SyntaxError) Error() string {
	return e.message
}

var (
	// lexical errors
	synErrInvalidToken      = newSyntaxError("invalid token")
	synErrUnclosedSet       = newSyntaxError("unclosed character set")
	synErrInvalidEscSeq     = newSyntaxError("invalid escape sequence")
	synErrIncompletedEscSeq = newSyntaxError("incompleted escape sequence; unexpected end following a backslash")
	synErrRangeInvalidOrder = newSyntaxError("a range expression with invalid order")
	synErrCharOutOfRange    = newSyntaxError("a character must be in U+0000..U+FFFF")
	synErrEmptyString       = newSyntaxError("a string must include at least one character")

	// syntax errors
	synErrUnexpectedToken    = newSyntaxError("unexpected token")
	synErrUnknownDirective   = newSyntaxError("unknown directive")
	synErrDirInvalidParam    = newSyntaxError("invalid directive parameter")
	synErrDuplicateDirective = newSyntaxError("duplicate directive")
	synErrAltTrailer         = newSyntaxError("#attribute and @action must follow the symbols of an alternative")
	synErrAltDuplicateMarker = newSyntaxError("an alternative can have at most one #attribute and one @action")
	synErrInvalidRepeat      = newSyntaxError("invalid repetition range")
)
