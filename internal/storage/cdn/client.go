package cdn

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	cftypes "github.com/aws/aws-sdk-go-v2/service/cloudfront/types"
	"github.com/aws/aws-sdk-go/service/cloudfront/sign"
)

const invalidateTimeout = 30 * time.Second

var _ Gateway = (*Client)(nil)

// Client подписывает URL и куки ключом дистрибуции и сбрасывает кеш CloudFront.
// Подпись — модуль v1 SDK (в v2 его нет), API-вызовы — клиент v2.
type Client struct {
	domain         string
	distributionID string
	urlSigner      *sign.URLSigner
	cookieSigner   *sign.CookieSigner
	cf             *cloudfront.Client
}

func NewClient(conf *Config) (*Client, error) {
	if conf == nil {
		return nil, fmt.Errorf("configuration is required")
	}

	privKey, err := sign.LoadPEMPrivKey(strings.NewReader(conf.PrivateKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("failed to load CDN private key: %w", err)
	}

	return &Client{
		domain:         strings.TrimSuffix(conf.Domain, "/"),
		distributionID: conf.DistributionID,
		urlSigner:      sign.NewURLSigner(conf.KeyPairID, privKey),
		cookieSigner:   sign.NewCookieSigner(conf.KeyPairID, privKey),
		cf:             newCloudFrontClient(conf),
	}, nil
}

func newCloudFrontClient(conf *Config) *cloudfront.Client {
	creds := aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(
		conf.AccessKeyID,
		conf.SecretAccessKey,
		"",
	))

	return cloudfront.New(cloudfront.Options{
		Region:      conf.Region,
		Credentials: creds,
	})
}

func (c *Client) resourceURL(path string) string {
	return fmt.Sprintf("%s/%s", c.domain, strings.TrimPrefix(path, "/"))
}

// SignedURL выдает подписанный URL, действительный в течение ttl
func (c *Client) SignedURL(path string, ttl time.Duration) (string, error) {
	signedURL, err := c.urlSigner.Sign(c.resourceURL(path), time.Now().Add(ttl))
	if err != nil {
		return "", fmt.Errorf("failed to sign URL: %w", err)
	}

	return signedURL, nil
}

// SignedDownloadURL добавляет content-disposition, чтобы браузер скачивал
// файл под исходным именем
func (c *Client) SignedDownloadURL(path, fileName string, ttl time.Duration) (string, error) {
	raw := c.resourceURL(path)
	if fileName != "" {
		disposition := url.QueryEscape(fmt.Sprintf(`attachment; filename="%s"`, fileName))
		raw = fmt.Sprintf("%s?response-content-disposition=%s", raw, disposition)
	}

	signedURL, err := c.urlSigner.Sign(raw, time.Now().Add(ttl))
	if err != nil {
		return "", fmt.Errorf("failed to sign download URL: %w", err)
	}

	return signedURL, nil
}

// SignedCookies подписывает policy, ограниченную префиксом пути
func (c *Client) SignedCookies(pathPrefix string, ttl time.Duration) (map[string]string, error) {
	policy := sign.NewCannedPolicy(c.resourceURL(pathPrefix), time.Now().Add(ttl))

	cookies, err := c.cookieSigner.SignWithPolicy(policy)
	if err != nil {
		return nil, fmt.Errorf("failed to sign cookies: %w", err)
	}

	values := make(map[string]string, len(cookies))
	for _, cookie := range cookies {
		values[cookie.Name] = cookie.Value
	}

	return values, nil
}

// Invalidate сбрасывает кеш перечисленных путей. Ошибка логируется на
// вызывающей стороне и не должна прерывать основную операцию.
func (c *Client) Invalidate(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	if c.distributionID == "" {
		log.Printf("[CDN] No distribution configured, skipping invalidation of %d paths", len(paths))
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, invalidateTimeout)
	defer cancel()

	_, err := c.cf.CreateInvalidation(ctx, &cloudfront.CreateInvalidationInput{
		DistributionId: aws.String(c.distributionID),
		InvalidationBatch: &cftypes.InvalidationBatch{
			CallerReference: aws.String(fmt.Sprintf("%d", time.Now().UnixNano())),
			Paths: &cftypes.Paths{
				Quantity: aws.Int32(int32(len(paths))),
				Items:    paths,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create invalidation: %w", err)
	}

	return nil
}
