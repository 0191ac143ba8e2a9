// Package diag defines the errors reported while translating pages.
package diag

// Issue defines the kinds of problems found while reading, parsing, validating or generating a page.
type Issue int

const (
	// IssueUnterminated means a construct such as a comment, scriptlet, directive or EL expression
	// was opened but its terminator never appeared in the same source.
	IssueUnterminated Issue = iota

	// IssueUnterminatedTag means a tag with a body reached the end of its source without the matching end tag.
	IssueUnterminatedTag

	// IssueUnbalancedEndTag means an end tag was found with no open tag of that name.
	IssueUnbalancedEndTag

	// IssueBadAttribute means an attribute could not be read: missing '=', unquoted value or bad name.
	IssueBadAttribute

	// IssueDuplicateAttribute means the same attribute appears twice on one element.
	IssueDuplicateAttribute

	// IssueUnknownDirective means the directive name is not one of page, include, taglib, tag, attribute or variable.
	IssueUnknownDirective

	// IssueUnknownAction means an element in the jsp namespace is not a known standard action.
	IssueUnknownAction

	// IssueBodyNotEmpty means an element declared empty has content.
	IssueBodyNotEmpty

	// IssueCircularInclude means an include directive refers to a file which is already being included.
	IssueCircularInclude

	// IssueIncludeFailed means the file named by an include directive could not be loaded.
	IssueIncludeFailed

	// IssueXMLSyntax means the document in XML syntax is not well formed.
	IssueXMLSyntax

	// IssueMissingAttribute means a mandatory attribute of a tag or an action is absent.
	IssueMissingAttribute

	// IssueUnknownAttribute means an attribute is not declared by the tag and the tag takes no dynamic attributes.
	IssueUnknownAttribute

	// IssueDuplicateNamedAttribute means a named attribute element repeats an attribute given inline
	// or by an earlier named attribute element.
	IssueDuplicateNamedAttribute

	// IssueRuntimeValueNotAllowed means a runtime expression was given to an attribute which takes only literals.
	IssueRuntimeValueNotAllowed

	// IssueDirectiveConflict means a directive attribute was set twice with different values.
	IssueDirectiveConflict

	// IssueInvalidDirectiveAttribute means a directive carries an attribute it does not define.
	IssueInvalidDirectiveAttribute

	// IssueInvalidDirectiveValue means a directive attribute holds a value outside of its domain.
	IssueInvalidDirectiveValue

	// IssueMisplacedDirective means a directive is used in the wrong kind of unit, e.g. tag directive in a page.
	IssueMisplacedDirective

	// IssueScriptingNotAllowed means a declaration, scriptlet or expression appears where scripting is disabled.
	IssueScriptingNotAllowed

	// IssueVariableConflict means a tag declares static scripting variables and a variable resolver at once.
	IssueVariableConflict

	// IssueInvalidLiteral means a literal attribute value cannot be converted to the attribute's type.
	IssueInvalidLiteral

	// IssueMisplacedAction means a standard action is used outside of the element it belongs to.
	IssueMisplacedAction

	// IssueInvalidExpression means an EL expression is not syntactically valid.
	IssueInvalidExpression

	// IssueTagValidation means a tag's own validator rejected its attributes.
	IssueTagValidation

	// IssueUnknownTaglib means a taglib uri or tag directory cannot be resolved.
	IssueUnknownTaglib

	// IssueUnknownTag means the tag library bound to the prefix does not define the tag.
	IssueUnknownTag

	// IssueUnknownFunction means an EL function is not defined by the library bound to its prefix.
	IssueUnknownFunction

	// IssueUnknownPrefix means a prefix is used with no tag library bound to it.
	IssueUnknownPrefix

	// IssueDependencyFailed means a tag file the unit depends on failed to compile.
	IssueDependencyFailed

	// IssueUnsupportedEncoding means the declared or detected character encoding of a source is unknown.
	IssueUnsupportedEncoding

	// IssueInternal is a broken invariant of the translator itself.
	IssueInternal

	// IssueErrorsTruncated occurs when there are too many errors recorded.
	IssueErrorsTruncated

	// IssueNegativeErrorsCap reports an invalid (negative) errors capacity.
	IssueNegativeErrorsCap

	// IssueBadDescriptor means a tag library descriptor is malformed or inconsistent.
	IssueBadDescriptor

	// IssueDuplicateTaglib means a tag library with the same uri is already registered.
	IssueDuplicateTaglib

	// IssueBadOption means a compiler option holds an invalid value.
	IssueBadOption

	// NumIssues is the number of defined issues.
	NumIssues
)

var issueInfo = [NumIssues]struct {
	key  string
	name string
}{
	IssueUnterminated:              {"pagec.error.unterminated", "Unterminated Construct"},
	IssueUnterminatedTag:           {"pagec.error.unterminated.tag", "Unterminated Tag"},
	IssueUnbalancedEndTag:          {"pagec.error.unbalanced.endtag", "Unbalanced End Tag"},
	IssueBadAttribute:              {"pagec.error.attribute.malformed", "Malformed Attribute"},
	IssueDuplicateAttribute:        {"pagec.error.attribute.duplicate", "Duplicate Attribute"},
	IssueUnknownDirective:          {"pagec.error.directive.unknown", "Unknown Directive"},
	IssueUnknownAction:             {"pagec.error.action.unknown", "Unknown Standard Action"},
	IssueBodyNotEmpty:              {"pagec.error.body.notempty", "Body Not Empty"},
	IssueCircularInclude:           {"pagec.error.include.circular", "Circular Include"},
	IssueIncludeFailed:             {"pagec.error.include.failed", "Include Failed"},
	IssueXMLSyntax:                 {"pagec.error.xml.syntax", "XML Syntax"},
	IssueMissingAttribute:          {"pagec.error.attribute.missing", "Missing Attribute"},
	IssueUnknownAttribute:          {"pagec.error.attribute.unknown", "Unknown Attribute"},
	IssueDuplicateNamedAttribute:   {"pagec.error.attribute.named.duplicate", "Duplicate Named Attribute"},
	IssueRuntimeValueNotAllowed:    {"pagec.error.attribute.runtime", "Runtime Value Not Allowed"},
	IssueDirectiveConflict:         {"pagec.error.directive.conflict", "Directive Conflict"},
	IssueInvalidDirectiveAttribute: {"pagec.error.directive.attribute", "Invalid Directive Attribute"},
	IssueInvalidDirectiveValue:     {"pagec.error.directive.value", "Invalid Directive Value"},
	IssueMisplacedDirective:        {"pagec.error.directive.misplaced", "Misplaced Directive"},
	IssueScriptingNotAllowed:       {"pagec.error.scripting.disabled", "Scripting Not Allowed"},
	IssueVariableConflict:          {"pagec.error.variable.conflict", "Variable Conflict"},
	IssueInvalidLiteral:            {"pagec.error.attribute.literal", "Invalid Literal"},
	IssueMisplacedAction:           {"pagec.error.action.misplaced", "Misplaced Action"},
	IssueInvalidExpression:         {"pagec.error.el.syntax", "Invalid Expression"},
	IssueTagValidation:             {"pagec.error.tag.validation", "Tag Validation"},
	IssueUnknownTaglib:             {"pagec.error.taglib.unknown", "Unknown Tag Library"},
	IssueUnknownTag:                {"pagec.error.tag.unknown", "Unknown Tag"},
	IssueUnknownFunction:           {"pagec.error.function.unknown", "Unknown Function"},
	IssueUnknownPrefix:             {"pagec.error.prefix.unknown", "Unknown Prefix"},
	IssueDependencyFailed:          {"pagec.error.dependency", "Dependency Failed"},
	IssueUnsupportedEncoding:       {"pagec.error.encoding", "Unsupported Encoding"},
	IssueInternal:                  {"pagec.error.internal", "Internal Error"},
	IssueErrorsTruncated:           {"pagec.error.truncated", "Errors Truncated"},
	IssueNegativeErrorsCap:         {"pagec.config.errors.cap", "Negative Errors Cap"},
	IssueBadDescriptor:             {"pagec.config.descriptor", "Bad Descriptor"},
	IssueDuplicateTaglib:           {"pagec.config.taglib.duplicate", "Duplicate Tag Library"},
	IssueBadOption:                 {"pagec.config.option", "Bad Option"},
}

// Key returns the stable message key of the issue, suitable for localisation lookups.
func (i Issue) Key() string {
	if i < 0 || i >= NumIssues {
		return "pagec.error.unknown"
	}
	return issueInfo[i].key
}

// String returns a human-readable name of the issue.
func (i Issue) String() string {
	if i < 0 || i >= NumIssues {
		return "Unknown Issue"
	}
	return issueInfo[i].name
}
