package options

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/spf13/pflag"
)

var _ IOptions = (*S3Options)(nil)

// S3Options configures the object store that media files are fetched from.
// An empty Endpoint disables remote media.
type S3Options struct {
	Endpoint        string `json:"endpoint" mapstructure:"endpoint"`
	AccessKeyID     string `json:"access-key-id" mapstructure:"access-key-id"`
	SecretAccessKey string `json:"secret-access-key" mapstructure:"secret-access-key"`
	UseSSL          bool   `json:"use-ssl" mapstructure:"use-ssl"`
	Region          string `json:"region" mapstructure:"region"`

	// CacheDir receives downloaded objects.
	CacheDir string `json:"cache-dir" mapstructure:"cache-dir"`
}

func NewS3Options() *S3Options {
	return &S3Options{
		UseSSL:   true,
		Region:   "us-east-1",
		CacheDir: filepath.Join(os.TempDir(), "flightlab-media"),
	}
}

// Enabled reports whether an endpoint has been configured.
func (o *S3Options) Enabled() bool {
	return o != nil && o.Endpoint != ""
}

func (o *S3Options) Validate() []error {
	if !o.Enabled() {
		return nil
	}

	errors := []error{}

	if o.CacheDir == "" {
		errors = append(errors, fmt.Errorf("--s3.cache-dir must not be empty"))
	}
	if (o.AccessKeyID == "") != (o.SecretAccessKey == "") {
		errors = append(errors, fmt.Errorf("--s3.access-key-id and --s3.secret-access-key must be set together"))
	}

	return errors
}

func (o *S3Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Endpoint, join(prefixes, "s3.endpoint"), o.Endpoint, "S3 service endpoint (e.g. s3.amazonaws.com or minio.local). Leave empty to disable.")
	fs.StringVar(&o.AccessKeyID, join(prefixes, "s3.access-key-id"), o.AccessKeyID, "S3 access key ID")
	fs.StringVar(&o.SecretAccessKey, join(prefixes, "s3.secret-access-key"), o.SecretAccessKey, "S3 secret access key")
	fs.BoolVar(&o.UseSSL, join(prefixes, "s3.use-ssl"), o.UseSSL, "Enable SSL for S3 connection")
	fs.StringVar(&o.Region, join(prefixes, "s3.region"), o.Region, "S3 region")
	fs.StringVar(&o.CacheDir, join(prefixes, "s3.cache-dir"), o.CacheDir, "Local directory for downloaded media")
}

// NewClient builds a minio client from the options.
func (o *S3Options) NewClient() (*minio.Client, error) {
	if !o.Enabled() {
		return nil, fmt.Errorf("s3 endpoint is not configured")
	}
	return minio.New(o.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(o.AccessKeyID, o.SecretAccessKey, ""),
		Secure: o.UseSSL,
		Region: o.Region,
	})
}
