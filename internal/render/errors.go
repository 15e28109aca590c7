package render

import "errors"

// Error classes returned by the engine. Match them with errors.Is.
var (
	// ErrTemplateNotFound means the requested template file does not exist
	ErrTemplateNotFound = errors.New("template not found")
	// ErrTemplateRender means the template failed to parse or execute
	ErrTemplateRender = errors.New("error rendering template")
	// ErrTemplateConfiguration means the engine could not be set up
	ErrTemplateConfiguration = errors.New("template configuration error")
	// ErrTestGeneration wraps any other failure while rendering
	ErrTestGeneration = errors.New("failed to generate test code")
)
