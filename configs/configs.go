package configs

import _ "embed"

// Hustlers は、公園にいるハスラーたちの定義です。
//
//go:embed hustlers.yaml
var Hustlers []byte
