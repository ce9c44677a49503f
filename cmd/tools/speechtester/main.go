package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/msl-practice/backend/internal/blob"
	"github.com/zhouzirui/msl-practice/backend/internal/config"
	"github.com/zhouzirui/msl-practice/backend/internal/logger"
	speechmodel "github.com/zhouzirui/msl-practice/backend/internal/model/speech"
	"github.com/zhouzirui/msl-practice/backend/internal/service/speech"
)

func main() {
	envErr := godotenv.Load()

	audioPath := flag.String("audio", "", "本地音频文件路径")
	key := flag.String("key", "", "对象存储中的录音 key，例如 recordings/<sessionId>/<ts>.webm")
	format := flag.String("format", "", "音频格式，默认取文件扩展名")
	provider := flag.String("provider", "", "识别服务: volcengine 或 whisper，默认使用配置")
	timeout := flag.Duration("timeout", 2*time.Minute, "请求超时时间")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("配置加载失败")
	}
	logger.Setup(cfg.Log)
	if envErr != nil {
		log.Warn().Err(envErr).Msg("无法加载 .env，改用系统环境变量")
	}

	if (*audioPath == "") == (*key == "") {
		flag.Usage()
		log.Fatal().Msg("请通过 -audio 或 -key 指定其中一个输入")
	}

	speechCfg := cfg.Speech
	if *provider != "" {
		speechCfg.Provider = strings.ToLower(*provider)
	}
	recognizer, err := speech.NewRecognizer(speechCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("识别服务初始化失败")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	start := time.Now()
	if *key != "" {
		runBlob(ctx, cfg.Blob, recognizer, *key)
	} else {
		runFile(ctx, recognizer, *audioPath, *format)
	}
	log.Info().Dur("elapsed", time.Since(start)).Msg("done")
}

// runFile 直接识别本地文件
func runFile(ctx context.Context, recognizer speech.Recognizer, path, format string) {
	audio, err := os.ReadFile(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("读取音频失败")
	}
	if format == "" {
		format = speechmodel.FormatFromKey(filepath.Base(path))
	}

	transcript, err := recognizer.Recognize(ctx, audio, format)
	if err != nil {
		log.Fatal().Err(err).Msg("ASR 调用失败")
	}
	log.Info().
		Str("provider", transcript.Provider).
		Int64("duration_ms", transcript.Duration).
		Str("request_id", transcript.RequestID).
		Str("text", transcript.Text).
		Msg("识别完成")
}

// runBlob 走与 /recording/process 相同的路径：从对象存储读取后识别
func runBlob(ctx context.Context, cfg config.BlobConfig, recognizer speech.Recognizer, key string) {
	if !cfg.Enabled() {
		log.Fatal().Msg("未配置 S3_BUCKET，无法读取录音")
	}
	store, err := blob.NewS3Store(ctx, blob.S3Config{
		Bucket:         cfg.Bucket,
		Region:         cfg.Region,
		Endpoint:       cfg.Endpoint,
		AccessKey:      cfg.AccessKey,
		SecretKey:      cfg.SecretKey,
		ForcePathStyle: cfg.ForcePathStyle,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("对象存储初始化失败")
	}

	text, err := speech.NewTranscriber(store, recognizer).Transcribe(ctx, key)
	if err != nil {
		log.Fatal().Err(err).Str("key", key).Msg("转写失败")
	}
	log.Info().Str("key", key).Str("text", text).Msg("识别完成")
}
