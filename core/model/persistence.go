package model

import (
	"encoding/gob"
	"io"
	"os"

	"github.com/YuminosukeSato/churnlab/pkg/errors"
)

// SaveModel はモデルを gob 形式でファイルに保存する。
// 学習済みの状態は公開フィールドにある必要がある（StateManager や木のノード配列など）。
//
//	err := model.SaveModel(finalModel, "artifacts/final_model.gob")
func SaveModel(m interface{}, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrapf(err, "create %s", filename)
	}
	defer file.Close()
	return SaveModelToWriter(m, file)
}

// LoadModel はファイルからモデルを読み込む。m は保存時と同じ型へのポインタ。
func LoadModel(m interface{}, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return errors.Wrapf(err, "open %s", filename)
	}
	defer file.Close()
	return LoadModelFromReader(m, file)
}

// SaveModelToWriter はモデルをio.Writerに保存する
func SaveModelToWriter(m interface{}, w io.Writer) error {
	if err := gob.NewEncoder(w).Encode(m); err != nil {
		return errors.Wrap(err, "encode model")
	}
	return nil
}

// LoadModelFromReader はio.Readerからモデルを読み込む
func LoadModelFromReader(m interface{}, r io.Reader) error {
	if err := gob.NewDecoder(r).Decode(m); err != nil {
		return errors.Wrap(err, "decode model")
	}
	return nil
}
