package cli

import (
	"context"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/roach88/smartscale/internal/config"
	"github.com/roach88/smartscale/internal/delivery"
	"github.com/roach88/smartscale/internal/link"
)

// newPipeline builds the upload pipeline for cfg, registering its metrics
// on reg and archiving to S3 when a bucket is configured.
func newPipeline(ctx context.Context, cfg config.Config, reg prometheus.Registerer, out *OutputFormatter) (*delivery.Pipeline, error) {
	popts := []delivery.PipelineOption{
		delivery.WithCapacity(cfg.Serializer.Capacity),
		delivery.WithMetrics(delivery.NewMetrics(reg)),
	}
	if s3cfg := cfg.S3(); s3cfg != nil {
		archiver, err := delivery.NewS3Archiver(ctx, *s3cfg)
		if err != nil {
			return nil, out.Fail(ExitCommandError, ErrCodeConfig, "failed to set up archive", err)
		}
		popts = append(popts, delivery.WithArchiver(archiver))
		out.VerboseLog("Archiving delivered documents to s3://%s", s3cfg.Bucket)
	}
	return delivery.NewPipeline(delivery.NewClient(cfg.GatewayURL), cfg.MAC, popts...), nil
}

// newConn frames rw with the configured send delay and timeouts.
func newConn(cfg config.Config, rw io.ReadWriter) *link.Conn {
	return link.NewConn(rw,
		link.WithSendDelay(cfg.Link.SendDelay),
		link.WithTimeouts(cfg.LinkTimeouts()),
	)
}

// stdio joins the command's input and output into one link stream.
type stdio struct {
	io.Reader
	io.Writer
}

// openDevice opens the serial device at path for reading and writing.
func openDevice(path string) (io.ReadWriteCloser, error) {
	return os.OpenFile(path, os.O_RDWR, 0)
}

func writeMetrics(w io.Writer, reg prometheus.Gatherer) error {
	families, err := reg.Gather()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to gather metrics", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return WrapExitError(ExitCommandError, "failed to write metrics", err)
		}
	}
	return nil
}
