// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package dispatch

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/AleutianAI/wellintent/services/intent/catalog"
	"github.com/AleutianAI/wellintent/services/intent/classify"
	"github.com/AleutianAI/wellintent/services/intent/ports"
)

var (
	// ErrMissingTarget is returned when a target-requiring request has no well.
	ErrMissingTarget = errors.New("a well identifier is required")

	// ErrUnsupportedIntent is returned for an intent without a handler.
	ErrUnsupportedIntent = errors.New("no handler for intent")

	// ErrInvalidRequest wraps boundary validation failures.
	ErrInvalidRequest = errors.New("invalid request")
)

var requestValidator = validator.New()

// Request is the tagged variant handed to a handler. Each variant carries
// only the fields its handler reads.
type Request interface {
	Intent() catalog.IntentType
	// Target returns the well the request names, or "".
	Target() string
	isRequest()
}

// ListRequest lists available wells.
type ListRequest struct{}

// TargetRequest addresses one well without a method (info, data quality,
// formation evaluation).
type TargetRequest struct {
	Kind   catalog.IntentType `validate:"required"`
	Entity string             `validate:"required"`
}

// ComputeRequest runs one calculation on one well, optionally followed by
// comparison methods.
type ComputeRequest struct {
	Kind        catalog.IntentType `validate:"required"`
	Entity      string             `validate:"required"`
	Calculation ports.Calculation  `validate:"required"`
	Method      string             `validate:"required"`

	// Compare lists extra methods computed after Method, in order.
	Compare []string
}

// MethodologyRequest asks for a methodology document.
type MethodologyRequest struct {
	Topic string `validate:"required"`
}

// AgentRequest forwards the text to the remote agent.
type AgentRequest struct {
	Text      string `validate:"required"`
	SessionID string
}

// CorrelationRequest compares one calculation across every available well.
type CorrelationRequest struct {
	Calculation ports.Calculation `validate:"required"`
	Method      string            `validate:"required"`
}

func (ListRequest) Intent() catalog.IntentType        { return catalog.IntentListWells }
func (r TargetRequest) Intent() catalog.IntentType    { return r.Kind }
func (r ComputeRequest) Intent() catalog.IntentType   { return r.Kind }
func (MethodologyRequest) Intent() catalog.IntentType { return catalog.IntentMethodology }
func (AgentRequest) Intent() catalog.IntentType       { return catalog.IntentNaturalLanguage }
func (CorrelationRequest) Intent() catalog.IntentType { return catalog.IntentMultiWellCorrelate }
func (ListRequest) Target() string                    { return "" }
func (r TargetRequest) Target() string                { return r.Entity }
func (r ComputeRequest) Target() string               { return r.Entity }
func (MethodologyRequest) Target() string             { return "" }
func (AgentRequest) Target() string                   { return "" }
func (CorrelationRequest) Target() string             { return "" }
func (ListRequest) isRequest()                        {}
func (TargetRequest) isRequest()                      {}
func (ComputeRequest) isRequest()                     {}
func (MethodologyRequest) isRequest()                 {}
func (AgentRequest) isRequest()                       {}
func (CorrelationRequest) isRequest()                 {}

// Comparison methods run by the workflow intents after the requested one.
var (
	shaleWorkflowMethods = []string{
		classify.MethodLarionovTertiary,
		classify.MethodLarionovPreTertiary,
		classify.MethodClavier,
		classify.MethodLinear,
	}
	porosityWorkflowMethods = []string{
		classify.MethodDensity,
		classify.MethodNeutron,
		classify.MethodDensityNeutron,
	}
)

// BuildRequest converts a classification into its request variant.
//
// Description:
//
//	Target-requiring variants return ErrMissingTarget when no entity was
//	extracted. The result is validated before it is returned.
//
// Inputs:
//
//	cls - The resolved classification.
//	text - The original request text.
//	sessionID - Forwarded to the remote agent. May be empty.
//
// Outputs:
//
//	Request - The validated variant.
//	error - ErrMissingTarget, ErrUnsupportedIntent or ErrInvalidRequest.
func BuildRequest(cls classify.Classification, text, sessionID string) (Request, error) {
	var req Request

	switch cls.Type {
	case catalog.IntentListWells:
		req = ListRequest{}

	case catalog.IntentWellInfo, catalog.IntentDataQuality, catalog.IntentFormationEval:
		req = TargetRequest{Kind: cls.Type, Entity: cls.TargetEntity}

	case catalog.IntentCalculatePorosity:
		req = ComputeRequest{Kind: cls.Type, Entity: cls.TargetEntity, Calculation: ports.CalcPorosity, Method: cls.Method}
	case catalog.IntentCalculateShale:
		req = ComputeRequest{Kind: cls.Type, Entity: cls.TargetEntity, Calculation: ports.CalcShaleVolume, Method: cls.Method}
	case catalog.IntentCalculateSat:
		req = ComputeRequest{Kind: cls.Type, Entity: cls.TargetEntity, Calculation: ports.CalcSaturation, Method: cls.Method}
	case catalog.IntentShaleWorkflow:
		req = ComputeRequest{
			Kind: cls.Type, Entity: cls.TargetEntity, Calculation: ports.CalcShaleVolume, Method: cls.Method,
			Compare: without(shaleWorkflowMethods, cls.Method),
		}
	case catalog.IntentPorosityWorkflow:
		req = ComputeRequest{
			Kind: cls.Type, Entity: cls.TargetEntity, Calculation: ports.CalcPorosity, Method: cls.Method,
			Compare: without(porosityWorkflowMethods, cls.Method),
		}

	case catalog.IntentMethodology:
		req = MethodologyRequest{Topic: cls.Method}

	case catalog.IntentNaturalLanguage:
		req = AgentRequest{Text: strings.TrimSpace(text), SessionID: sessionID}

	case catalog.IntentMultiWellCorrelate:
		calc, method := correlationCalculation(text)
		req = CorrelationRequest{Calculation: calc, Method: method}

	default:
		return nil, fmt.Errorf("%w %q", ErrUnsupportedIntent, cls.Type)
	}

	if err := ValidateRequest(req); err != nil {
		return nil, err
	}
	return req, nil
}

// ValidateRequest checks a variant's required fields.
func ValidateRequest(req Request) error {
	if req == nil {
		return fmt.Errorf("%w: nil request", ErrInvalidRequest)
	}
	if err := requestValidator.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				if fe.Field() == "Entity" {
					return ErrMissingTarget
				}
			}
		}
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

// correlationCalculation picks the property to compare from the text.
func correlationCalculation(text string) (ports.Calculation, string) {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "shale") || strings.Contains(lower, "vsh"):
		return ports.CalcShaleVolume, classify.ExtractMethod(catalog.IntentCalculateShale, text)
	case strings.Contains(lower, "saturation"):
		return ports.CalcSaturation, classify.ExtractMethod(catalog.IntentCalculateSat, text)
	default:
		return ports.CalcPorosity, classify.ExtractMethod(catalog.IntentCalculatePorosity, text)
	}
}

func without(methods []string, skip string) []string {
	out := make([]string, 0, len(methods))
	for _, m := range methods {
		if m != skip {
			out = append(out, m)
		}
	}
	return out
}
