// Package registry はサービス名からベースURLを引くサービスレジストリを実装する。
//
// サービスは起動時に自身の名前とURLを登録し、ゲートウェイは名前で検索する。
// 同じ名前の再登録は前の値を黙って上書きする（最後の書き込みが勝つ）。
// TTL、登録解除、ヘルスチェックは持たないため、停止したサービスの登録は残り続ける。
//
// 保存先はプロセス内のメモリ（MemoryStore）またはRedis（RedisStore）から選択する。
package registry
