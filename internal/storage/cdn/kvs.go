package cdn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/cloudfrontkeyvaluestore"
	kvstypes "github.com/aws/aws-sdk-go-v2/service/cloudfrontkeyvaluestore/types"
)

var _ KeyValueStore = (*KVSClient)(nil)

// KVSClient хранит маппинг токен раздачи -> путь объекта в CloudFront
// KeyValueStore, откуда его читает edge-функция дистрибуции.
type KVSClient struct {
	client *cloudfrontkeyvaluestore.Client
	kvsARN string
}

func NewKVSClient(conf *Config) (*KVSClient, error) {
	if conf == nil {
		return nil, fmt.Errorf("configuration is required")
	}

	creds := aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(
		conf.AccessKeyID,
		conf.SecretAccessKey,
		"",
	))

	client := cloudfrontkeyvaluestore.New(cloudfrontkeyvaluestore.Options{
		Region:      conf.Region,
		Credentials: creds,
	})

	return &KVSClient{
		client: client,
		kvsARN: conf.KVSARN,
	}, nil
}

// etag возвращает текущий ETag стора; каждая запись требует свежего ETag
func (k *KVSClient) etag(ctx context.Context) (string, error) {
	out, err := k.client.DescribeKeyValueStore(ctx, &cloudfrontkeyvaluestore.DescribeKeyValueStoreInput{
		KvsARN: aws.String(k.kvsARN),
	})
	if err != nil {
		return "", fmt.Errorf("failed to describe key value store: %w", err)
	}

	return aws.ToString(out.ETag), nil
}

func (k *KVSClient) PutShareMapping(ctx context.Context, token string, mapping ShareMapping) error {
	value, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("failed to marshal share mapping: %w", err)
	}

	etag, err := k.etag(ctx)
	if err != nil {
		return err
	}

	_, err = k.client.PutKey(ctx, &cloudfrontkeyvaluestore.PutKeyInput{
		KvsARN:  aws.String(k.kvsARN),
		Key:     aws.String(token),
		Value:   aws.String(string(value)),
		IfMatch: aws.String(etag),
	})
	if err != nil {
		return fmt.Errorf("failed to put share mapping: %w", err)
	}

	return nil
}

// DeleteShareMapping удаляет ключ; отсутствующий ключ не считается ошибкой
func (k *KVSClient) DeleteShareMapping(ctx context.Context, token string) error {
	etag, err := k.etag(ctx)
	if err != nil {
		return err
	}

	_, err = k.client.DeleteKey(ctx, &cloudfrontkeyvaluestore.DeleteKeyInput{
		KvsARN:  aws.String(k.kvsARN),
		Key:     aws.String(token),
		IfMatch: aws.String(etag),
	})
	if err != nil {
		var notFound *kvstypes.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to delete share mapping: %w", err)
	}

	return nil
}
