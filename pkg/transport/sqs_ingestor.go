package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vitkuz/aws-dynamo-adapter/dynamo"
	"github.com/vitkuz/aws-dynamo-adapter/pkg/config"
)

// SQSClient is the slice of the SQS API the ingestor uses.
type SQSClient interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

const (
	defaultWaitSeconds = int32(20)
	defaultBatchSize   = int32(10)
	receiveRetryDelay  = 5 * time.Second
)

// RecordIngestor long-polls an SQS queue and writes the records it
// carries into the table. A message body holds one record object or an
// array of them.
type RecordIngestor struct {
	client   SQSClient
	queueURL string
	adapter  *dynamo.Adapter
	wait     int32
	batch    int32
	logger   zerolog.Logger
}

func NewRecordIngestor(client SQSClient, cfg config.IngestConf, adapter *dynamo.Adapter) *RecordIngestor {
	wait := cfg.WaitSeconds
	if wait <= 0 {
		wait = defaultWaitSeconds
	}
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	return &RecordIngestor{
		client:   client,
		queueURL: cfg.QueueURL,
		adapter:  adapter,
		wait:     wait,
		batch:    batch,
		logger:   log.With().Str("component", "sqs_ingestor").Logger(),
	}
}

// Start polls the queue until ctx is cancelled. It blocks, so callers
// usually run it in its own goroutine.
func (r *RecordIngestor) Start(ctx context.Context) {
	if r.queueURL == "" {
		r.logger.Warn().Msg("no queue URL configured, ingestor disabled")
		return
	}
	r.logger.Info().Str("queue_url", r.queueURL).Msg("record ingestor started")

	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("record ingestor stopped")
			return
		default:
		}

		out, err := r.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(r.queueURL),
			MaxNumberOfMessages: r.batch,
			WaitTimeSeconds:     r.wait,
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			r.logger.Error().Err(err).Msg("receive failed, backing off")
			time.Sleep(receiveRetryDelay)
			continue
		}

		for _, msg := range out.Messages {
			if err := r.ingest(ctx, aws.ToString(msg.Body)); err != nil {
				// Leave the message on the queue for redelivery.
				r.logger.Error().Err(err).Str("message_id", aws.ToString(msg.MessageId)).Msg("message ingest failed")
				continue
			}
			if _, err := r.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
				QueueUrl:      aws.String(r.queueURL),
				ReceiptHandle: msg.ReceiptHandle,
			}); err != nil {
				r.logger.Error().Err(err).Str("message_id", aws.ToString(msg.MessageId)).Msg("delete failed, message will redeliver")
			}
		}
	}
}

func (r *RecordIngestor) ingest(ctx context.Context, body string) error {
	recs, err := decodeRecords([]byte(body))
	if err != nil {
		return err
	}
	_, err = r.adapter.CreateMany(ctx, recs)
	return err
}

// decodeRecords accepts either a single JSON record object or an array.
func decodeRecords(body []byte) ([]dynamo.Record, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var recs []dynamo.Record
		if err := json.Unmarshal(trimmed, &recs); err != nil {
			return nil, err
		}
		return recs, nil
	}
	var rec dynamo.Record
	if err := json.Unmarshal(trimmed, &rec); err != nil {
		return nil, err
	}
	return []dynamo.Record{rec}, nil
}
