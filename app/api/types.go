package api

import (
	"github.com/HPDell/RSSHub/app/feed"
	"github.com/HPDell/RSSHub/app/proxy"
	"github.com/HPDell/RSSHub/app/sources/bilibili"
	"github.com/HPDell/RSSHub/app/sources/whurs"
)

type GeneratorInterface interface {
	Run(f *feed.Feed, selfPath string) (string, error)
}

var _ GeneratorInterface = (*feed.Generator)(nil)

type Handler struct {
	whu       *whurs.Source
	bilibili  *bilibili.Source
	proxy     *proxy.Handler
	generator GeneratorInterface
}
