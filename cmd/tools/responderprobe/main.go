package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/study-buddy/internal/config"
	"github.com/zhouzirui/study-buddy/internal/service/chat"
	"github.com/zhouzirui/study-buddy/internal/service/responder"
)

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05.000"}).
		With().Timestamp().Logger()

	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("无法加载 .env，改用系统环境变量")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("配置加载失败")
	}

	message := flag.String("message", "Hello", "发送给后端的消息")
	endpoint := flag.String("endpoint", cfg.Responder.Endpoint, "后端接口地址，默认使用 RESPONDER_URL")
	timeout := flag.Duration("timeout", 45*time.Second, "请求超时时间")
	flag.Parse()

	if err := config.ValidateEndpoint(*endpoint); err != nil {
		flag.Usage()
		log.Fatal().Err(err).Msg("后端地址无效")
	}

	client := responder.NewClient(*endpoint,
		responder.WithTimeout(*timeout),
		responder.WithLogger(log.Logger),
	)
	session := chat.NewService(client, chat.WithLogger(log.Logger))

	log.Info().Str("endpoint", *endpoint).Dur("timeout", *timeout).Msg("发送探测消息")

	start := time.Now()
	if err := session.Submit(context.Background(), *message); err != nil {
		log.Fatal().Err(err).Msg("消息未发送")
	}
	elapsed := time.Since(start)

	msgs := session.Messages()
	for _, msg := range msgs {
		fmt.Printf("[%s] %-4s %s\n", msg.Clock(), msg.Sender, msg.Text)
	}

	last := msgs[len(msgs)-1]
	if last.Text == chat.ErrorReplyText {
		log.Error().Dur("elapsed", elapsed).Msg("后端不可用")
		os.Exit(1)
	}
	log.Info().Dur("elapsed", elapsed).Int("chars", len(last.Text)).Msg("后端响应正常")
}
