package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const (
	signingAlgorithm = "AWS4-HMAC-SHA256"
	scopeTerminator  = "aws4_request"
	s3Service        = "s3"

	// UnsignedPayload is the payload hash sent with GET requests
	UnsignedPayload = "UNSIGNED-PAYLOAD"

	// AmzDateFormat is the layout of the x-amz-date header
	AmzDateFormat = "20060102T150405Z"
	// AmzDateShort is the layout of the credential scope date
	AmzDateShort = "20060102"

	signedHeaderList = "host;x-amz-content-sha256;x-amz-date"
)

// SigningContext is everything needed to sign one S3 request. Build a new one
// per request; it carries the secret key.
type SigningContext struct {
	Method        string
	CanonicalPath string
	Host          string
	Timestamp     string // AmzDateFormat
	Datestamp     string // AmzDateShort
	PayloadHash   string
	Region        string
	Bucket        string
	AccessKey     string
	SecretKey     string
}

// SignedRequest holds the headers to attach to the request
type SignedRequest struct {
	Authorization string
	ContentSHA256 string
	Date          string

	CanonicalRequest string
	StringToSign     string
}

// Sign computes an AWS Signature Version 4 for the context. The result
// depends only on sc.
func Sign(sc SigningContext) SignedRequest {
	canonicalRequest := buildCanonicalRequest(sc)
	scope := sc.Datestamp + "/" + sc.Region + "/" + s3Service + "/" + scopeTerminator
	stringToSign := buildStringToSign(sc.Timestamp, scope, canonicalRequest)

	signingKey := deriveSigningKey(sc.SecretKey, sc.Datestamp, sc.Region, s3Service)
	signature := hex.EncodeToString(hmacSHA256(signingKey, stringToSign))

	return SignedRequest{
		Authorization: signingAlgorithm + " Credential=" + sc.AccessKey + "/" + scope +
			", SignedHeaders=" + signedHeaderList +
			", Signature=" + signature,
		ContentSHA256:    sc.PayloadHash,
		Date:             sc.Timestamp,
		CanonicalRequest: canonicalRequest,
		StringToSign:     stringToSign,
	}
}

// PayloadHash returns the hex SHA-256 of a request body
func PayloadHash(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// CanonicalPath encodes an object key as an S3 request path
func CanonicalPath(key string) string {
	return "/" + uriEncode(strings.TrimPrefix(key, "/"), false)
}

func buildCanonicalRequest(sc SigningContext) string {
	var sb strings.Builder
	sb.WriteString(sc.Method)
	sb.WriteByte('\n')
	sb.WriteString(sc.CanonicalPath)
	sb.WriteByte('\n')
	// no query string
	sb.WriteByte('\n')
	sb.WriteString("host:" + strings.ToLower(strings.TrimSpace(sc.Host)) + "\n")
	sb.WriteString("x-amz-content-sha256:" + sc.PayloadHash + "\n")
	sb.WriteString("x-amz-date:" + sc.Timestamp + "\n")
	sb.WriteByte('\n')
	sb.WriteString(signedHeaderList)
	sb.WriteByte('\n')
	sb.WriteString(sc.PayloadHash)
	return sb.String()
}

func buildStringToSign(amzDate, scope, canonicalRequest string) string {
	hash := sha256.Sum256([]byte(canonicalRequest))
	return signingAlgorithm + "\n" +
		amzDate + "\n" +
		scope + "\n" +
		hex.EncodeToString(hash[:])
}

func deriveSigningKey(secretKey, dateStr, region, svc string) []byte {
	dateKey := hmacSHA256([]byte("AWS4"+secretKey), dateStr)
	regionKey := hmacSHA256(dateKey, region)
	serviceKey := hmacSHA256(regionKey, svc)
	return hmacSHA256(serviceKey, scopeTerminator)
}

func hmacSHA256(key []byte, data string) []byte {
	h := hmac.New(sha256.New, key)
	h.Write([]byte(data))
	return h.Sum(nil)
}

func uriEncode(s string, encodeSlash bool) string {
	const hexDigits = "0123456789ABCDEF"

	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) || (!encodeSlash && c == '/') {
			sb.WriteByte(c)
			continue
		}
		sb.WriteByte('%')
		sb.WriteByte(hexDigits[c>>4])
		sb.WriteByte(hexDigits[c&0x0f])
	}
	return sb.String()
}

func isUnreserved(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') ||
		(c >= '0' && c <= '9') || c == '-' || c == '_' || c == '.' || c == '~'
}
