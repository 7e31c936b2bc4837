package engine

import (
	"context"
	"fmt"
	"time"

	"tradecompass/internal/classifier"
	"tradecompass/internal/common"
	"tradecompass/internal/model"
	"tradecompass/internal/qualification"
)

// ClassifyRequest is the classify call contract input.
type ClassifyRequest struct {
	Description  string
	BusinessType string
	KnownChapter string
	Limit        int
}

// ClassifyResponse is the classify call contract output.
type ClassifyResponse struct {
	AuditID             string
	Candidates          []model.ProductCandidate
	Error               string
	Suggestion          string
	Success             bool
	FallbackRecommended bool
}

// Classify runs the classification pipeline. Failures come back as a
// structured response, never as a Go error.
func (e *Engine) Classify(ctx context.Context, req ClassifyRequest) ClassifyResponse {
	resp := ClassifyResponse{AuditID: newAuditID()}
	e.classifications.Add(1)

	if err := e.ensureReady(ctx); err != nil {
		resp.Error, resp.Suggestion = failure(err)
		return resp
	}

	result, err := e.classifier.Classify(ctx, classifier.Input{
		Description:  req.Description,
		BusinessType: req.BusinessType,
		KnownChapter: req.KnownChapter,
		Limit:        req.Limit,
	})
	if err != nil {
		resp.Error, resp.Suggestion = failure(err)
		e.logger.Info("classification rejected",
			"audit_id", resp.AuditID,
			"error", resp.Error)
		return resp
	}

	resp.Success = result.Success
	resp.Candidates = result.Candidates
	resp.Suggestion = result.Suggestion
	resp.FallbackRecommended = result.FallbackRecommended
	if !result.Success {
		resp.Error = "classification sources unavailable"
	}
	return resp
}

// RuleResponse is the resolveRule call contract output. Rule resolution
// cannot fail; Success is false only when initialization itself failed.
type RuleResponse struct {
	AuditID    string
	Rule       model.QualificationRule
	Error      string
	Suggestion string
	Success    bool
}

// ResolveRule returns the qualification rule for a code and optional
// business type, with its tier provenance.
func (e *Engine) ResolveRule(ctx context.Context, code, businessType string) RuleResponse {
	resp := RuleResponse{AuditID: newAuditID()}
	e.ruleLookups.Add(1)

	if err := e.ensureReady(ctx); err != nil {
		resp.Error, resp.Suggestion = failure(err)
		return resp
	}

	resp.Rule = e.rules.Resolve(ctx, code, businessType)
	resp.Success = true
	return resp
}

// EvaluateRequest is the evaluate call contract input.
type EvaluateRequest struct {
	Code                  string
	BusinessType          string
	ManufacturingLocation string
	Components            []model.Component
}

// EvaluateResponse is the evaluate call contract output.
type EvaluateResponse struct {
	AuditID    string
	Result     model.QualificationResult
	Error      string
	Suggestion string
	Success    bool
}

// Evaluate computes the regional-content verdict for a product.
func (e *Engine) Evaluate(ctx context.Context, req EvaluateRequest) EvaluateResponse {
	resp := EvaluateResponse{AuditID: newAuditID()}
	e.evaluations.Add(1)

	var evaluator *qualification.Evaluator
	for attempt := 0; attempt < 2 && evaluator == nil; attempt++ {
		if err := e.ensureReady(ctx); err != nil {
			resp.Error, resp.Suggestion = failure(err)
			return resp
		}
		e.mu.RLock()
		evaluator = e.evaluator
		e.mu.RUnlock()
		if evaluator == nil {
			// A Reset landed between the readiness check and the read;
			// demote the state so the next pass warm-loads again.
			e.state.CompareAndSwap(int32(StateReady), int32(StateUninitialized))
		}
	}
	if evaluator == nil {
		resp.Error = "engine is resetting"
		resp.Suggestion = "Retry the evaluation"
		return resp
	}

	result, err := evaluator.Evaluate(ctx, qualification.Input{
		Code:                  req.Code,
		BusinessType:          req.BusinessType,
		ManufacturingLocation: req.ManufacturingLocation,
		Components:            req.Components,
	})
	if err != nil {
		resp.Error, resp.Suggestion = failure(err)
		return resp
	}

	resp.Success = true
	resp.Result = result
	return resp
}

// RateResponse is the resolveRates call contract output. The rate resolver
// never fails outright; the record always carries provenance.
type RateResponse struct {
	AuditID    string
	Rate       model.RateRecord
	Error      string
	Suggestion string
	Success    bool
}

// ResolveRates returns the duty rates for a code and destination country.
func (e *Engine) ResolveRates(ctx context.Context, code, destination string) RateResponse {
	resp := RateResponse{AuditID: newAuditID()}
	e.rateLookups.Add(1)

	if err := e.ensureReady(ctx); err != nil {
		resp.Error, resp.Suggestion = failure(err)
		return resp
	}

	resp.Rate = e.rates.Resolve(ctx, code, destination)
	resp.Success = true
	return resp
}

// SavingsRequest asks what qualifying would be worth for a product.
type SavingsRequest struct {
	Code               string
	DestinationCountry string
	TradeVolume        string
	Qualified          bool
}

// SavingsResponse is the annual duty comparison for a trade volume.
type SavingsResponse struct {
	AuditID          string
	Rate             model.RateRecord
	Error            string
	Suggestion       string
	Warning          string
	AnnualVolume     float64
	StandardDuty     float64
	PreferentialDuty float64
	AnnualSavings    float64
	MonthlySavings   float64
	SavingsRate      float64
	Success          bool
	Qualified        bool
}

// CalculateSavings resolves rates and applies them to the declared annual
// trade volume. Savings are zero unless the caller holds a qualification.
func (e *Engine) CalculateSavings(ctx context.Context, req SavingsRequest) SavingsResponse {
	resp := SavingsResponse{AuditID: newAuditID(), Qualified: req.Qualified}

	if err := e.ensureReady(ctx); err != nil {
		resp.Error, resp.Suggestion = failure(err)
		return resp
	}

	rate := e.rates.Resolve(ctx, req.Code, req.DestinationCountry)
	volume := e.annualVolume(req.TradeVolume)

	resp.Rate = rate
	resp.AnnualVolume = volume
	resp.StandardDuty = volume * rate.StandardRate
	resp.PreferentialDuty = resp.StandardDuty
	if req.Qualified {
		resp.PreferentialDuty = volume * rate.PreferentialRate
		resp.AnnualSavings = resp.StandardDuty - resp.PreferentialDuty
		resp.MonthlySavings = resp.AnnualSavings / 12
		resp.SavingsRate = rate.StandardRate - rate.PreferentialRate
	}
	if rate.Source == model.RateSourceEmergency {
		resp.Warning = "rates are conservative emergency estimates; savings may be understated"
	}
	resp.Success = true
	return resp
}

// CertificateRequest carries the party and product data for a
// preferential-origin certificate.
type CertificateRequest struct {
	ExporterName    string
	ExporterAddress string
	ExporterTaxID   string
	ImporterName    string
	ImporterAddress string
	Description     string
	Code            string
	CountryOfOrigin string
	Qualification   model.QualificationResult
}

// CertificateResponse is the certificate data contract output.
type CertificateResponse struct {
	AuditID     string
	Certificate model.Certificate
	Error       string
	Suggestion  string
	Success     bool
}

// CertificateData assembles certificate fields for a qualified product.
// An unqualified result is rejected: issuing a certificate without a
// qualification is a compliance violation, not a default.
func (e *Engine) CertificateData(ctx context.Context, req CertificateRequest) CertificateResponse {
	resp := CertificateResponse{AuditID: newAuditID()}

	if err := e.ensureReady(ctx); err != nil {
		resp.Error, resp.Suggestion = failure(err)
		return resp
	}

	if !req.Qualification.Qualified {
		resp.Error, resp.Suggestion = failure(common.NewUserError(
			"product is not qualified for preferential treatment",
			"Run an evaluation first and address the qualification gap before requesting a certificate",
			common.ErrNotQualified))
		return resp
	}

	now := time.Now()
	resp.Certificate = model.Certificate{
		ExporterName:         req.ExporterName,
		ExporterAddress:      req.ExporterAddress,
		ExporterTaxID:        req.ExporterTaxID,
		ImporterName:         req.ImporterName,
		ImporterAddress:      req.ImporterAddress,
		ProductDescription:   req.Description,
		Classification:       req.Code,
		PreferenceCriterion:  preferenceCriterion(req.Qualification.RuleType),
		CountryOfOrigin:      req.CountryOfOrigin,
		RegionalValueContent: fmt.Sprintf("%.1f%%", req.Qualification.RegionalContent),
		ApplicableRule:       req.Qualification.RuleSource,
		SupportingDocuments:  req.Qualification.DocumentationRequired,
		Instructions: []string{
			"Retain supporting records for five years after the blanket period",
			"Notify the importer of any change that affects qualification",
		},
		BlanketStart: now,
		BlanketEnd:   now.AddDate(0, 0, e.cfg.CertificateValidityDays),
		GeneratedAt:  now,
	}
	resp.Success = true
	return resp
}

// preferenceCriterion maps a rule type onto the certificate preference
// criterion letter.
func preferenceCriterion(ruleType string) string {
	switch ruleType {
	case model.RuleWhollyObtained:
		return "A"
	case model.RuleTariffShift:
		return "B"
	case model.RuleSpecificManufacturing:
		return "C"
	case model.RuleRegionalValueContent:
		return "D"
	default:
		return "D"
	}
}
