package archive

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/LJTian/TejoMag/internal/processor"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// PutObjectAPI S3 客户端中用到的最小接口，便于测试替换
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver 将入库文章的原始 HTML 存到 <prefix>/<source>/<id>.html
type S3Archiver struct {
	client PutObjectAPI
	bucket string
	prefix string
}

// NewS3Archiver 使用默认 AWS 凭证链，region 为空时按环境默认
func NewS3Archiver(ctx context.Context, bucket, region, prefix string) (*S3Archiver, error) {
	var loadOpts []func(*config.LoadOptions) error
	if region != "" {
		loadOpts = append(loadOpts, config.WithRegion(region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewS3ArchiverWithClient(s3.NewFromConfig(awsCfg), bucket, prefix), nil
}

func NewS3ArchiverWithClient(client PutObjectAPI, bucket, prefix string) *S3Archiver {
	return &S3Archiver{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

func (a *S3Archiver) Key(art processor.EnrichedArticle) string {
	source := art.Source
	if source == "" {
		source = "unknown"
	}
	return path.Join(a.prefix, source, art.ID+".html")
}

func (a *S3Archiver) Archive(ctx context.Context, art processor.EnrichedArticle, page []byte) error {
	if len(page) == 0 {
		return nil
	}
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(a.Key(art)),
		Body:        bytes.NewReader(page),
		ContentType: aws.String("text/html; charset=utf-8"),
		Metadata: map[string]string{
			"source-url": asciiMeta(art.URL),
			"slug":       asciiMeta(art.Slug),
		},
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", a.bucket, a.Key(art), err)
	}
	return nil
}

// asciiMeta S3 用户元数据只允许 ASCII，非 ASCII 字节按 %XX 编码
func asciiMeta(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 0x20 || c >= 0x7f {
			fmt.Fprintf(&b, "%%%02X", c)
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}
