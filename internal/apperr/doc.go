// Package apperr defines the error-kind taxonomy shared by every layer of
// vidsum: the metadata store, the pipeline stages, the adapters, and the
// HTTP facade. A *apperr.Error carries one abstract Kind that downstream
// code (the facade's status mapper, the pipeline's failure classifier) can
// switch on without parsing message text.
package apperr
