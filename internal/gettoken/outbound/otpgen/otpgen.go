// Package otpgen computes OTP values for stored tokens. Seeds and PINs are
// decrypted per call and never leave this package except as the derived
// values and the PIN.
package otpgen

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shandysiswandi/gettoken/internal/gettoken/entity"
	"github.com/shandysiswandi/gettoken/internal/gettoken/usecase"
	"github.com/shandysiswandi/gettoken/internal/pkg/goerror"
	"github.com/shandysiswandi/gettoken/internal/pkg/instrument"
	"github.com/shandysiswandi/gettoken/internal/pkg/mfa"
	"github.com/shandysiswandi/gettoken/internal/pkg/otp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Provider derives OTP values from tokens read through the caller's session.
type Provider struct {
	enc mfa.Encryptor
	gen otp.Generator
	ins instrument.Instrumentation
}

func NewProvider(enc mfa.Encryptor, gen otp.Generator, ins instrument.Instrumentation) *Provider {
	return &Provider{enc: enc, gen: gen, ins: ins}
}

func (p *Provider) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return p.ins.Tracer("gettoken.outbound.otpgen").Start(ctx, name)
}

func (p *Provider) endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, entity.ErrTokenNotFound) && !errors.Is(err, entity.ErrTokenUnsupported) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (p *Provider) GetOTP(ctx context.Context, tokens usecase.TokenReader, serial string, at time.Time) (_ *entity.OTPValue, err error) {
	ctx, span := p.startSpan(ctx, "GetOTP")
	defer func() { p.endSpan(span, err) }()

	tok, seed, err := p.load(ctx, tokens, serial)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("token.type", tok.Type.String()))

	pin, err := p.pin(tok)
	if err != nil {
		return nil, err
	}

	index, value, err := p.generate(tok, seed, at, 0)
	if err != nil {
		return nil, err
	}

	return &entity.OTPValue{
		Index:    index,
		Value:    value,
		PIN:      pin,
		Password: pin + value,
	}, nil
}

func (p *Provider) GetMultiOTP(ctx context.Context, tokens usecase.TokenReader, serial string, count int, at time.Time) (_ []entity.OTPEntry, err error) {
	ctx, span := p.startSpan(ctx, "GetMultiOTP")
	defer func() { p.endSpan(span, err) }()

	tok, seed, err := p.load(ctx, tokens, serial)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("token.type", tok.Type.String()), attribute.Int("otp.count", count))

	entries := make([]entity.OTPEntry, 0, max(count, 0))
	for i := range max(count, 0) {
		index, value, err := p.generate(tok, seed, at, uint64(i))
		if err != nil {
			return nil, err
		}

		entry := entity.OTPEntry{Index: index, Value: value}
		if tok.Type == entity.TokenTypeTOTP {
			entry.TimeWindow = otp.WindowStart(uint64(index), tok.TimeStep).Format(time.DateTime)
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// load reads and decrypts the token. Unknown serials, inactive tokens and
// types without retrievable values map to the entity sentinels.
func (p *Provider) load(ctx context.Context, tokens usecase.TokenReader, serial string) (*entity.Token, []byte, error) {
	tok, err := tokens.GetToken(ctx, serial)
	if errors.Is(err, goerror.ErrNotFound) {
		return nil, nil, entity.ErrTokenNotFound
	}
	if err != nil {
		return nil, nil, err
	}

	if !tok.Active || !tok.Type.SupportsGetOTP() {
		return nil, nil, entity.ErrTokenUnsupported
	}

	seed, err := p.enc.Decrypt(tok.Seed, mfa.Scope{Serial: tok.Serial, Purpose: mfa.PurposeOTPSeed})
	if err != nil {
		return nil, nil, fmt.Errorf("otpgen: decrypt seed of %s: %w", tok.Serial, err)
	}

	return tok, seed, nil
}

func (p *Provider) pin(tok *entity.Token) (string, error) {
	if len(tok.PIN) == 0 {
		return "", nil
	}

	pin, err := p.enc.Decrypt(tok.PIN, mfa.Scope{Serial: tok.Serial, Purpose: mfa.PurposeTokenPIN})
	if err != nil {
		return "", fmt.Errorf("otpgen: decrypt pin of %s: %w", tok.Serial, err)
	}

	return string(pin), nil
}

// generate returns the moving factor and value offset steps past the current one.
func (p *Provider) generate(tok *entity.Token, seed []byte, at time.Time, offset uint64) (int64, string, error) {
	params := otp.Params{Digits: tok.OTPLen, Algorithm: tok.HashAlgo, Step: tok.TimeStep}

	if tok.Type.CounterBased() {
		counter := uint64(max(tok.Counter, 0)) + offset
		value, err := p.gen.HOTP(seed, counter, params)
		return int64(counter), value, err
	}

	window := otp.Window(at, tok.TimeStep) + offset
	value, err := p.gen.TOTP(seed, window, params)
	return int64(window), value, err
}
