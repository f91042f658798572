// Package polly adapts Amazon Polly to the gateway contract.
package polly

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	"github.com/aws/aws-sdk-go-v2/service/polly/types"

	"github.com/nikhilbhutani/ttsgateway/internal/storage"
	"github.com/nikhilbhutani/ttsgateway/internal/tts"
	"github.com/nikhilbhutani/ttsgateway/internal/tts/providers/ssml"
)

const ID = "polly"

const (
	defaultRegion = "us-east-1"
	defaultVoice  = "Joanna"
	defaultFormat = "mp3"
	// Polly accepts prosody rates between 20% and 200%.
	minRate = 0.2
	maxRate = 2.0
)

type Config struct {
	Region string
	// Static credentials are optional; the default AWS chain is used otherwise.
	AccessKeyID     string
	SecretAccessKey string
}

// pollyAPI is the slice of the Polly client this provider calls.
type pollyAPI interface {
	DescribeVoices(ctx context.Context, in *polly.DescribeVoicesInput, opts ...func(*polly.Options)) (*polly.DescribeVoicesOutput, error)
	SynthesizeSpeech(ctx context.Context, in *polly.SynthesizeSpeechInput, opts ...func(*polly.Options)) (*polly.SynthesizeSpeechOutput, error)
}

type Provider struct {
	client pollyAPI
	store  storage.AudioStore
}

// New loads AWS configuration and builds a Polly client.
func New(ctx context.Context, cfg Config, store storage.AudioStore) (*Provider, error) {
	if cfg.Region == "" {
		cfg.Region = defaultRegion
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return newWithClient(polly.NewFromConfig(awsCfg), store), nil
}

func newWithClient(client pollyAPI, store storage.AudioStore) *Provider {
	return &Provider{client: client, store: store}
}

func (p *Provider) ID() string          { return ID }
func (p *Provider) DisplayName() string { return "Amazon Polly" }

// ListVoices pages through DescribeVoices.
func (p *Provider) ListVoices(ctx context.Context) ([]tts.Voice, error) {
	var out []tts.Voice
	in := &polly.DescribeVoicesInput{}
	for {
		resp, err := p.client.DescribeVoices(ctx, in)
		if err != nil {
			return nil, classify(err)
		}
		for _, v := range resp.Voices {
			out = append(out, toVoice(v))
		}
		if resp.NextToken == nil || *resp.NextToken == "" {
			break
		}
		in = &polly.DescribeVoicesInput{NextToken: resp.NextToken}
	}
	if out == nil {
		out = []tts.Voice{}
	}
	return out, nil
}

func toVoice(v types.Voice) tts.Voice {
	meta := map[string]any{}
	if v.LanguageName != nil {
		meta["languageName"] = *v.LanguageName
	}
	if len(v.SupportedEngines) > 0 {
		engines := make([]string, 0, len(v.SupportedEngines))
		for _, e := range v.SupportedEngines {
			engines = append(engines, string(e))
		}
		meta["engines"] = engines
	}
	name := string(v.Id)
	if v.Name != nil && *v.Name != "" {
		name = *v.Name
	}
	voice := tts.Voice{
		ID:          string(v.Id),
		DisplayName: name,
		LanguageTag: string(v.LanguageCode),
		Meta:        meta,
	}
	if v.Gender != "" {
		voice.Gender = tts.GenderPtr(string(v.Gender))
	}
	return voice
}

var outputFormats = map[string]types.OutputFormat{
	"mp3": types.OutputFormatMp3,
	"ogg": types.OutputFormatOggVorbis,
	"pcm": types.OutputFormatPcm,
}

// Synthesize honours providerExtra keys engine, sampleRate and ssml. Rate and
// pitch are applied through an SSML prosody wrapper, so they cannot be combined
// with caller-supplied SSML.
func (p *Provider) Synthesize(ctx context.Context, req tts.SynthesisRequest) (*tts.SynthesisResult, error) {
	ext := req.Format(defaultFormat)
	format, ok := outputFormats[ext]
	if !ok {
		return nil, tts.InvalidRequest(ID, fmt.Sprintf("unsupported format %q", ext), nil)
	}

	in := &polly.SynthesizeSpeechInput{
		OutputFormat: format,
		VoiceId:      types.VoiceId(req.Voice(defaultVoice)),
		Text:         aws.String(req.Text),
		TextType:     types.TextTypeText,
	}
	if lang := req.Lang(""); lang != "" {
		in.LanguageCode = types.LanguageCode(lang)
	}
	if v, ok := req.Extra("engine"); ok {
		s, ok := v.(string)
		if !ok {
			return nil, tts.InvalidRequest(ID, "providerExtra.engine must be a string", nil)
		}
		in.Engine = types.Engine(s)
	}
	if v, ok := req.Extra("sampleRate"); ok {
		rate, err := sampleRate(v)
		if err != nil {
			return nil, tts.InvalidRequest(ID, "providerExtra.sampleRate", err)
		}
		in.SampleRate = aws.String(rate)
	}

	rate, pitch, err := prosody(req)
	if err != nil {
		return nil, err
	}
	markup, err := isSSML(req)
	if err != nil {
		return nil, err
	}
	switch {
	case markup && (rate != "" || pitch != ""):
		return nil, tts.InvalidRequest(ID, "rate and pitch cannot be combined with providerExtra.ssml; use <prosody> in the markup", nil)
	case markup:
		in.TextType = types.TextTypeSsml
	case rate != "" || pitch != "":
		in.TextType = types.TextTypeSsml
		in.Text = aws.String(ssml.Speak(ssml.Prosody(req.Text, rate, pitch)))
	}

	resp, err := p.client.SynthesizeSpeech(ctx, in)
	if err != nil {
		return nil, classify(err)
	}
	defer resp.AudioStream.Close()

	audio, err := io.ReadAll(resp.AudioStream)
	if err != nil {
		return nil, tts.Unavailable(ID, "read audio stream", err)
	}
	uri, err := p.store.Put(ctx, storage.ObjectKey(ID, ext), storage.ContentType(ext), audio)
	if err != nil {
		return nil, tts.Unavailable(ID, "store audio", err)
	}
	return &tts.SynthesisResult{AudioURI: uri}, nil
}

func (p *Provider) Health(ctx context.Context) tts.HealthStatus {
	_, err := p.client.DescribeVoices(ctx, &polly.DescribeVoicesInput{LanguageCode: types.LanguageCodeEnUs})
	if err != nil {
		return tts.HealthDegraded
	}
	return tts.HealthOK
}

func prosody(req tts.SynthesisRequest) (rate, pitch string, err error) {
	if r, ok := req.Rate(); ok {
		if r < minRate || r > maxRate {
			return "", "", tts.InvalidRequest(ID, fmt.Sprintf("rate %.2f outside [%.1f, %.1f]", r, minRate, maxRate), nil)
		}
		rate = ssml.Percent(r)
	}
	if st, ok := req.Pitch(); ok {
		// Polly has no semitone unit; approximate at roughly 6% per semitone.
		pitch = fmt.Sprintf("%+d%%", int(st*6))
	}
	return rate, pitch, nil
}

func isSSML(req tts.SynthesisRequest) (bool, error) {
	v, ok := req.Extra("ssml")
	if !ok || v == nil {
		return false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, tts.InvalidRequest(ID, "providerExtra.ssml must be a boolean", nil)
	}
	return b, nil
}

func sampleRate(v any) (string, error) {
	switch n := v.(type) {
	case string:
		if _, err := strconv.Atoi(n); err != nil {
			return "", err
		}
		return n, nil
	case float64:
		return strconv.Itoa(int(n)), nil
	default:
		return "", fmt.Errorf("unexpected type %T", v)
	}
}

func classify(err error) error {
	var (
		ssmlErr    *types.InvalidSsmlException
		lengthErr  *types.TextLengthExceededException
		rateErr    *types.InvalidSampleRateException
		langErr    *types.LanguageNotSupportedException
		engineErr  *types.EngineNotSupportedException
		lexiconErr *types.LexiconNotFoundException
		serviceErr *types.ServiceFailureException
	)
	switch {
	case errors.As(err, &ssmlErr), errors.As(err, &lengthErr), errors.As(err, &rateErr),
		errors.As(err, &langErr), errors.As(err, &engineErr), errors.As(err, &lexiconErr):
		return tts.InvalidRequest(ID, "rejected by Polly", err)
	case errors.As(err, &serviceErr):
		return tts.Unavailable(ID, "Polly service failure", err)
	}
	// Unknown voice ids and similar surface as generic validation errors.
	var coded interface{ ErrorCode() string }
	if errors.As(err, &coded) && coded.ErrorCode() == "ValidationException" {
		return tts.InvalidRequest(ID, "rejected by Polly", err)
	}
	return tts.Unavailable(ID, "Polly request failed", err)
}
