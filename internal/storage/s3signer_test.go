package storage

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedSigningContext() SigningContext {
	return SigningContext{
		Method:        http.MethodPut,
		CanonicalPath: "/doc-1",
		Host:          "examplebucket.s3.us-east-1.amazonaws.com",
		Timestamp:     "20250101T000000Z",
		Datestamp:     "20250101",
		PayloadHash:   PayloadHash([]byte("hello")),
		Region:        "us-east-1",
		Bucket:        "examplebucket",
		AccessKey:     "AKIDEXAMPLE",
		SecretKey:     "wJalrXUtnFEMI/K7MDENG+bPxRfiCYEXAMPLEKEY",
	}
}

func TestSign_Deterministic(t *testing.T) {
	sc := fixedSigningContext()

	first := Sign(sc)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first.Authorization, Sign(sc).Authorization)
	}

	other := sc
	other.PayloadHash = PayloadHash([]byte("hello!"))
	assert.NotEqual(t, first.Authorization, Sign(other).Authorization)
}

func TestSign_Structure(t *testing.T) {
	sc := fixedSigningContext()
	signed := Sign(sc)

	assert.Equal(t, sc.PayloadHash, signed.ContentSHA256)
	assert.Equal(t, "20250101T000000Z", signed.Date)
	assert.True(t, strings.HasPrefix(signed.Authorization,
		"AWS4-HMAC-SHA256 Credential=AKIDEXAMPLE/20250101/us-east-1/s3/aws4_request, "+
			"SignedHeaders=host;x-amz-content-sha256;x-amz-date, Signature="))

	sig := signed.Authorization[strings.LastIndex(signed.Authorization, "=")+1:]
	assert.Len(t, sig, 64)

	expectedCanonical := strings.Join([]string{
		"PUT",
		"/doc-1",
		"",
		"host:examplebucket.s3.us-east-1.amazonaws.com",
		"x-amz-content-sha256:" + sc.PayloadHash,
		"x-amz-date:20250101T000000Z",
		"",
		"host;x-amz-content-sha256;x-amz-date",
		sc.PayloadHash,
	}, "\n")
	assert.Equal(t, expectedCanonical, signed.CanonicalRequest)

	lines := strings.Split(signed.StringToSign, "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "AWS4-HMAC-SHA256", lines[0])
	assert.Equal(t, "20250101T000000Z", lines[1])
	assert.Equal(t, "20250101/us-east-1/s3/aws4_request", lines[2])
	assert.Equal(t, PayloadHash([]byte(expectedCanonical)), lines[3])
}

func TestSign_MatchesSDKSigner(t *testing.T) {
	signingTime := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	host := "examplebucket.s3.us-east-1.amazonaws.com"

	req, err := http.NewRequest(http.MethodGet, "https://"+host+"/reports/doc-1", nil)
	require.NoError(t, err)
	req.Header.Set("X-Amz-Content-Sha256", UnsignedPayload)

	creds := aws.Credentials{
		AccessKeyID:     "AKIDEXAMPLE",
		SecretAccessKey: "wJalrXUtnFEMI/K7MDENG+bPxRfiCYEXAMPLEKEY",
	}
	err = v4.NewSigner().SignHTTP(context.Background(), creds, req, UnsignedPayload, "s3", "us-east-1", signingTime,
		func(o *v4.SignerOptions) { o.DisableURIPathEscaping = true })
	require.NoError(t, err)

	ours := Sign(SigningContext{
		Method:        http.MethodGet,
		CanonicalPath: CanonicalPath("reports/doc-1"),
		Host:          host,
		Timestamp:     signingTime.Format(AmzDateFormat),
		Datestamp:     signingTime.Format(AmzDateShort),
		PayloadHash:   UnsignedPayload,
		Region:        "us-east-1",
		Bucket:        "examplebucket",
		AccessKey:     creds.AccessKeyID,
		SecretKey:     creds.SecretAccessKey,
	})

	assert.Equal(t, req.Header.Get("X-Amz-Date"), ours.Date)
	assert.Equal(t, signatureOf(req.Header.Get("Authorization")), signatureOf(ours.Authorization))
}

func TestCanonicalPath(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{key: "doc-1", want: "/doc-1"},
		{key: "/leading", want: "/leading"},
		{key: "nested/path/file.txt", want: "/nested/path/file.txt"},
		{key: "with space", want: "/with%20space"},
		{key: "a+b=c", want: "/a%2Bb%3Dc"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, CanonicalPath(tt.key))
		})
	}
}

func TestPayloadHash(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", PayloadHash(nil))
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", PayloadHash([]byte("hello")))
}

func signatureOf(authorization string) string {
	idx := strings.Index(authorization, "Signature=")
	if idx < 0 {
		return ""
	}
	return authorization[idx+len("Signature="):]
}
